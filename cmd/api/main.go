package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/cdc"
	"github.com/bankops/backoffice/internal/config"
	"github.com/bankops/backoffice/internal/handler"
	"github.com/bankops/backoffice/internal/integrations/centralbank"
	"github.com/bankops/backoffice/internal/ledger"
	"github.com/bankops/backoffice/internal/repository"
	"github.com/bankops/backoffice/internal/scheduler"
	"github.com/bankops/backoffice/internal/service"
	"github.com/bankops/backoffice/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize layers
	repo := repository.NewRepository(db)
	ledgerClient := ledger.NewClient(cfg.LedgerURL, cfg.LedgerTimeout, logger)

	var rates service.RateSource
	if cfg.RatesURL != "" {
		rates = centralbank.NewClient(cfg.RatesURL, logger)
	}
	svc := service.NewService(repo, ledgerClient, rates, cfg.LedgerCode, cfg.Currency, logger)
	h := handler.NewHandler(svc)

	// CDC consumer: project settled ledger transfers into the relational
	// store. The projection is best-effort; the consumer never stops the
	// stream over a failed write.
	projector := cdc.NewProjector(repo, logger)
	consumer := cdc.NewConsumer(projector, logger)
	events, err := ledgerClient.StreamEvents(ctx)
	if err != nil {
		logger.Fatalf("Failed to subscribe to ledger events: %v", err)
	}
	go consumer.Run(ctx, events)

	// Payment scheduler
	var notifier scheduler.OverdueNotifier
	if cfg.SMTPHost != "" && cfg.OpsEmail != "" {
		notifier = email.NewSender(cfg, logger)
	}
	sched := scheduler.NewScheduler(repo, repo, repo, ledgerClient, notifier, cfg.Currency, logger)
	if err := sched.Start(ctx, cfg.SchedulerInterval, cfg.OverdueSweepInterval); err != nil {
		logger.Fatalf("Failed to start payment scheduler: %v", err)
	}

	// Setup router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	r.HandleFunc("/loans", h.ListPaymentPlans).Methods("GET")
	r.HandleFunc("/loans/{accountId}/payment-plan", h.GetPaymentPlan).Methods("GET")
	r.HandleFunc("/loans/{accountId}/payment-plan", h.DeletePaymentPlan).Methods("DELETE")
	r.HandleFunc("/loans/{accountId}/schedule", h.GetAmortizationSchedule).Methods("GET")
	r.HandleFunc("/loans/{accountId}/disburse", h.DisburseLoan).Methods("POST")
	r.HandleFunc("/accounts/{accountId}/transfers", h.GetTransferHistory).Methods("GET")
	r.HandleFunc("/accounts/{accountId}/balance", h.GetAccountBalance).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown: stop taking triggers, let an in-flight batch
	// finish its settled plans, then drain HTTP.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown failed: %v", err)
	}
}
