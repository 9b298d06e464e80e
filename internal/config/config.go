package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	LedgerURL     string
	LedgerTimeout time.Duration
	LedgerCode    int
	Currency      string

	// Cadence of the payment batch and the overdue sweep. Interval length
	// is the only difference between production and test runs.
	SchedulerInterval    time.Duration
	OverdueSweepInterval time.Duration

	// Optional central-bank reference-rate endpoint used as a pricing
	// floor at loan origination. Empty disables the check.
	RatesURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	OpsEmail     string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5432 user=backoffice password=backoffice dbname=backoffice sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		LedgerURL:    getEnv("LEDGER_URL", "http://localhost:6000"),
		Currency:     getEnv("CURRENCY", "USD"),
		RatesURL:     getEnv("RATES_URL", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "servicing@backoffice.local"),
		OpsEmail:     getEnv("OPS_EMAIL", ""),
	}

	var err error
	if cfg.LedgerTimeout, err = getEnvDuration("LEDGER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SchedulerInterval, err = getEnvDuration("SCHEDULER_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OverdueSweepInterval, err = getEnvDuration("OVERDUE_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.LedgerCode, err = getEnvInt("LEDGER_CODE", 840); err != nil {
		return nil, err
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.LedgerURL == "" {
		return nil, fmt.Errorf("LEDGER_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}
