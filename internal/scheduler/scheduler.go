// Package scheduler executes recurring loan payments. A periodic batch scans
// for due payment plans, bills an invoice, instructs the ledger to move
// funds from the customer's deposit account and advances servicing state.
// Each plan's outcome is independent: one failure never aborts the batch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/ledger"
	"github.com/bankops/backoffice/internal/models"
	"github.com/bankops/backoffice/internal/repository"
)

var (
	batchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_scheduler_batch_runs_total",
		Help: "Payment batch runs, labeled by outcome (completed, skipped)",
	}, []string{"outcome"})

	plansProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_scheduler_plans_processed_total",
		Help: "Due plans processed, labeled by result",
	}, []string{"result"})

	invoicesOverdueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_scheduler_invoices_overdue_total",
		Help: "Invoices transitioned to overdue by the sweep",
	})
)

// FailureReason classifies why a due plan could not be serviced this cycle.
type FailureReason string

const (
	ReasonInvoiceFailed    FailureReason = "INVOICE_FAILED"
	ReasonNoFundingAccount FailureReason = "NO_FUNDING_ACCOUNT"
	ReasonTransferFailed   FailureReason = "TRANSFER_FAILED"
	ReasonRepositoryError  FailureReason = "REPOSITORY_ERROR"
)

// PlanFailure records one plan's failed servicing attempt. The invoice, if
// any, stays pending and becomes eligible for the next cycle's overdue
// sweep; nothing is retried mid-batch.
type PlanFailure struct {
	AccountID string
	Reason    FailureReason
	Err       error
}

// BatchSummary is the sole externally observable result of a batch run.
type BatchSummary struct {
	Considered int
	Succeeded  int
	Failed     int
	Skipped    int
	Failures   []PlanFailure
}

// PlanStore is the slice of the repository the scheduler reads and advances.
type PlanStore interface {
	FindPaymentsDue(asOf time.Time) ([]*models.PaymentPlan, error)
	UpdateRemainingPayments(accountID string, remaining int) error
	UpdateNextPaymentDate(accountID string, next time.Time) error
}

// InvoiceStore tracks billed-but-not-settled amounts.
type InvoiceStore interface {
	CreateInvoice(accountID string, amount int64, dueDate time.Time) (*models.Invoice, error)
	FindOpenInvoice(accountID string, dueDate time.Time) (*models.Invoice, error)
	MarkInvoicePaid(id string) error
	FindOverdueCandidates(asOf time.Time) ([]*models.Invoice, error)
	MarkInvoiceOverdue(id string) error
}

// FundingResolver resolves the deposit account payments are drawn from.
type FundingResolver interface {
	FindFundingAccount(customerID string) (string, error)
}

// LedgerClient is the transfer instruction the scheduler sends the ledger.
type LedgerClient interface {
	CreateTransfer(ctx context.Context, from, to string, amount int64, currency string, code int) (string, error)
}

// OverdueNotifier is told about invoices the sweep marks overdue.
// Notification failures are logged, never fatal to the sweep.
type OverdueNotifier interface {
	NotifyOverdue(invoice *models.Invoice) error
}

// Scheduler owns the payment batch state. One instance per process; the
// single-flight flag is process-local because only one scheduler instance is
// meant to run.
type Scheduler struct {
	plans    PlanStore
	invoices InvoiceStore
	funding  FundingResolver
	ledger   LedgerClient
	notifier OverdueNotifier
	log      *logrus.Logger

	currency string
	running  atomic.Bool
	cron     *cron.Cron
	now      func() time.Time
}

// NewScheduler initializes a payment scheduler. notifier may be nil.
func NewScheduler(plans PlanStore, invoices InvoiceStore, funding FundingResolver,
	ledgerClient LedgerClient, notifier OverdueNotifier, currency string, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		plans:    plans,
		invoices: invoices,
		funding:  funding,
		ledger:   ledgerClient,
		notifier: notifier,
		currency: currency,
		log:      log,
		now:      time.Now,
	}
}

// Start schedules the payment batch and the overdue sweep on their
// configured cadences. The cadence is configuration, not behavior: test and
// production differ only in interval length.
func (s *Scheduler) Start(ctx context.Context, batchEvery, sweepEvery time.Duration) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", batchEvery), func() {
		s.RunBatch(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule payment batch: %w", err)
	}
	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", sweepEvery), func() {
		s.RunOverdueSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	s.cron.Start()
	s.log.Infof("Payment scheduler started: batch every %s, sweep every %s", batchEvery, sweepEvery)
	return nil
}

// Stop halts the cadence and waits for a running batch to finish. Plans
// already past the funds-transfer step complete their state advancement;
// only not-yet-started plans are skipped.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunBatch processes every due plan once. Single-flight: a trigger while a
// run is active is a logged no-op, not queued.
func (s *Scheduler) RunBatch(ctx context.Context) *BatchSummary {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("Payment batch already running, skipping trigger")
		batchRunsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	defer s.running.Store(false)

	asOf := s.now()
	due, err := s.plans.FindPaymentsDue(asOf)
	if err != nil {
		s.log.Errorf("Failed to query due payment plans: %v", err)
		batchRunsTotal.WithLabelValues("completed").Inc()
		return &BatchSummary{}
	}

	summary := &BatchSummary{Considered: len(due)}
	for _, plan := range due {
		if ctx.Err() != nil {
			// Shutdown: skip plans not yet started.
			summary.Skipped = len(due) - summary.Succeeded - summary.Failed
			break
		}
		if failure := s.processPlan(ctx, plan); failure != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, *failure)
			plansProcessedTotal.WithLabelValues(string(failure.Reason)).Inc()
			s.log.WithField("account_id", failure.AccountID).
				Errorf("Payment failed (%s): %v", failure.Reason, failure.Err)
		} else {
			summary.Succeeded++
			plansProcessedTotal.WithLabelValues("SUCCEEDED").Inc()
		}
	}

	batchRunsTotal.WithLabelValues("completed").Inc()
	s.log.Infof("Payment batch finished: %d considered, %d succeeded, %d failed, %d skipped",
		summary.Considered, summary.Succeeded, summary.Failed, summary.Skipped)
	return summary
}

// processPlan services a single due plan. All errors are contained here; the
// batch only ever sees a recorded failure.
func (s *Scheduler) processPlan(ctx context.Context, plan *models.PaymentPlan) *PlanFailure {
	invoice, err := s.invoices.CreateInvoice(plan.AccountID, plan.MonthlyPayment, plan.NextPaymentDate)
	if errors.Is(err, repository.ErrDuplicateInvoice) {
		// Already billed this cycle (e.g. a previous attempt failed at the
		// transfer step). Reuse the open invoice instead of billing twice.
		invoice, err = s.invoices.FindOpenInvoice(plan.AccountID, plan.NextPaymentDate)
	}
	if err != nil {
		return &PlanFailure{AccountID: plan.AccountID, Reason: ReasonInvoiceFailed, Err: err}
	}

	fundingAccountID, err := s.funding.FindFundingAccount(plan.CustomerID)
	if errors.Is(err, repository.ErrNoFundingAccount) {
		return &PlanFailure{AccountID: plan.AccountID, Reason: ReasonNoFundingAccount, Err: err}
	}
	if err != nil {
		return &PlanFailure{AccountID: plan.AccountID, Reason: ReasonRepositoryError, Err: err}
	}

	// Timeouts and insufficient funds are both transfer failures; the
	// invoice stays open for the next cycle's sweep.
	transferID, err := s.ledger.CreateTransfer(ctx, fundingAccountID, plan.AccountID,
		plan.MonthlyPayment, s.currency, ledger.TransferCodeLoanPayment)
	if err != nil {
		return &PlanFailure{AccountID: plan.AccountID, Reason: ReasonTransferFailed, Err: err}
	}

	// Funds have moved: state advancement is final regardless of shutdown.
	// remaining_payments decreases by exactly one per settled payment and
	// the due date advances one period.
	var advanceErr error
	if err := s.invoices.MarkInvoicePaid(invoice.ID); err != nil {
		advanceErr = err
	}
	if err := s.plans.UpdateRemainingPayments(plan.AccountID, plan.RemainingPayments-1); err != nil && advanceErr == nil {
		advanceErr = err
	}
	next := plan.PaymentFrequency.Next(plan.NextPaymentDate)
	if err := s.plans.UpdateNextPaymentDate(plan.AccountID, next); err != nil && advanceErr == nil {
		advanceErr = err
	}
	if advanceErr != nil {
		return &PlanFailure{
			AccountID: plan.AccountID,
			Reason:    ReasonRepositoryError,
			Err:       fmt.Errorf("transfer %s settled but state advancement failed: %w", transferID, advanceErr),
		}
	}

	s.log.Infof("Payment of %d collected for account %s (transfer %s), next due %s",
		plan.MonthlyPayment, plan.AccountID, transferID, next.Format("2006-01-02"))
	return nil
}

// RunOverdueSweep transitions pending invoices whose due date has passed to
// overdue and notifies the configured recipient.
func (s *Scheduler) RunOverdueSweep() {
	candidates, err := s.invoices.FindOverdueCandidates(s.now())
	if err != nil {
		s.log.Errorf("Overdue sweep query failed: %v", err)
		return
	}
	for _, invoice := range candidates {
		if err := s.invoices.MarkInvoiceOverdue(invoice.ID); err != nil {
			s.log.Errorf("Failed to mark invoice %s overdue: %v", invoice.ID, err)
			continue
		}
		invoicesOverdueTotal.Inc()
		s.log.Infof("Invoice %s for account %s is overdue (due %s)",
			invoice.ID, invoice.AccountID, invoice.DueDate.Format("2006-01-02"))
		if s.notifier != nil {
			if err := s.notifier.NotifyOverdue(invoice); err != nil {
				s.log.Errorf("Failed to send overdue notification for invoice %s: %v", invoice.ID, err)
			}
		}
	}
}
