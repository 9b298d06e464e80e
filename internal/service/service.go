// Package service implements the loan domain operations exposed to the API
// layer: origination, plan lookup, schedule generation and disbursement.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/amortization"
	"github.com/bankops/backoffice/internal/ledger"
	"github.com/bankops/backoffice/internal/models"
)

// Store is the slice of the repository the loan service uses.
type Store interface {
	SavePlan(plan *models.PaymentPlan) error
	FindPlanByAccountID(accountID string) (*models.PaymentPlan, error)
	FindAllPlans() ([]*models.PaymentPlan, error)
	DeletePlan(accountID string) error
	SaveFundingAccount(customerID, accountID string) error
	FindTransfersByAccount(accountID string) ([]*models.TransferRecord, error)
}

// LedgerClient is the slice of the ledger contract the loan service needs.
type LedgerClient interface {
	CreateAccount(ctx context.Context, ledgerCode, accountCode int) (string, error)
	CreateTransfer(ctx context.Context, from, to string, amount int64, currency string, code int) (string, error)
	GetAccountBalance(ctx context.Context, accountID string) (*ledger.Balance, error)
	LookupAccounts(ctx context.Context, ids []string) ([]ledger.Account, error)
}

// RateSource supplies the central-bank reference rate used as a pricing
// floor at origination. May be absent.
type RateSource interface {
	GetReferenceRate() (float64, error)
}

// Ledger account codes for accounts the back office opens.
const (
	accountCodeLoan = 200
)

// Service handles loan business logic.
type Service struct {
	store      Store
	ledger     LedgerClient
	rates      RateSource
	log        *logrus.Logger
	ledgerCode int
	currency   string
}

// NewService initializes a new loan service. rates may be nil, in which case
// no pricing floor is enforced.
func NewService(store Store, ledgerClient LedgerClient, rates RateSource,
	ledgerCode int, currency string, log *logrus.Logger) *Service {
	return &Service{
		store:      store,
		ledger:     ledgerClient,
		rates:      rates,
		log:        log,
		ledgerCode: ledgerCode,
		currency:   currency,
	}
}

// CreateLoanWithPaymentPlan validates loan terms, opens the loan account in
// the ledger and persists the payment plan atomically with it. Validation
// failures never reach the scheduler.
func (s *Service) CreateLoanWithPaymentPlan(ctx context.Context, terms models.LoanTerms) (*models.LoanCreated, error) {
	if err := amortization.Validate(terms.PrincipalAmount, terms.InterestRate, terms.TermMonths); err != nil {
		return nil, err
	}
	if terms.PaymentFrequency == "" {
		terms.PaymentFrequency = models.FrequencyMonthly
	}
	if terms.LoanType == "" {
		terms.LoanType = models.LoanTypeAnnuity
	}

	if s.rates != nil {
		floor, err := s.rates.GetReferenceRate()
		if err != nil {
			s.log.Warnf("Reference rate unavailable, skipping pricing floor: %v", err)
		} else if terms.InterestRate < floor {
			return nil, fmt.Errorf("%w: rate %.2f%% below reference rate %.2f%%",
				amortization.ErrInvalidLoanParameters, terms.InterestRate, floor)
		}
	}

	payment, err := amortization.PaymentAmount(terms.PrincipalAmount, terms.InterestRate,
		terms.TermMonths, terms.LoanType, terms.PaymentFrequency)
	if err != nil {
		return nil, err
	}

	accountID, err := s.ledger.CreateAccount(ctx, s.ledgerCode, accountCodeLoan)
	if err != nil {
		return nil, fmt.Errorf("failed to open loan account: %w", err)
	}

	firstDue := terms.FirstPaymentDate
	if firstDue.IsZero() {
		firstDue = terms.PaymentFrequency.Next(time.Now())
	}

	plan := &models.PaymentPlan{
		AccountID:         accountID,
		CustomerID:        terms.CustomerID,
		PrincipalAmount:   terms.PrincipalAmount,
		MonthlyPayment:    payment,
		InterestRate:      terms.InterestRate,
		TermMonths:        terms.TermMonths,
		LoanType:          terms.LoanType,
		PaymentFrequency:  terms.PaymentFrequency,
		Fees:              terms.Fees,
		RemainingPayments: terms.TermMonths,
		NextPaymentDate:   firstDue,
	}
	if err := s.store.SavePlan(plan); err != nil {
		return nil, err
	}
	if terms.FundingAccountID != "" {
		if err := s.store.SaveFundingAccount(terms.CustomerID, terms.FundingAccountID); err != nil {
			return nil, err
		}
	}

	s.log.Infof("Loan originated for customer %s: account %s, payment %d per period",
		terms.CustomerID, accountID, payment)
	return &models.LoanCreated{
		AccountID:       accountID,
		MonthlyPayment:  payment,
		TotalLoanAmount: plan.TotalLoanAmount(),
	}, nil
}

// GetPaymentPlan returns the plan for a loan account.
func (s *Service) GetPaymentPlan(accountID string) (*models.PaymentPlan, error) {
	return s.store.FindPlanByAccountID(accountID)
}

// ListPaymentPlans returns every payment plan for back-office reporting.
func (s *Service) ListPaymentPlans() ([]*models.PaymentPlan, error) {
	return s.store.FindAllPlans()
}

// DeletePaymentPlan removes a plan from the store. Plans are retired by the
// scheduler when remaining_payments reaches zero; this exists for operator
// cleanup of loans originated in error.
func (s *Service) DeletePaymentPlan(accountID string) error {
	if err := s.store.DeletePlan(accountID); err != nil {
		return err
	}
	s.log.Infof("Payment plan for account %s deleted", accountID)
	return nil
}

// GenerateAmortizationSchedule computes the full repayment schedule for an
// existing loan from its stored terms.
func (s *Service) GenerateAmortizationSchedule(accountID string) (*models.AmortizationSchedule, error) {
	plan, err := s.store.FindPlanByAccountID(accountID)
	if err != nil {
		return nil, err
	}
	entries, err := amortization.Schedule(plan.PrincipalAmount, plan.InterestRate,
		plan.TermMonths, plan.LoanType, plan.PaymentFrequency)
	if err != nil {
		return nil, err
	}
	totalPayments, totalInterest := amortization.Totals(entries)
	return &models.AmortizationSchedule{
		AccountID:     accountID,
		TotalPayments: totalPayments,
		TotalInterest: totalInterest,
		Schedule:      entries,
	}, nil
}

// DisburseLoan pays out loan funds to a customer account. A zero amount
// disburses the full principal.
func (s *Service) DisburseLoan(ctx context.Context, loanAccountID, targetAccountID string, amount int64, description string) (*models.Disbursement, error) {
	plan, err := s.store.FindPlanByAccountID(loanAccountID)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		amount = plan.PrincipalAmount
	}
	if amount < 0 || amount > plan.PrincipalAmount {
		return nil, fmt.Errorf("%w: disbursement amount %d outside loan principal",
			amortization.ErrInvalidLoanParameters, amount)
	}

	accounts, err := s.ledger.LookupAccounts(ctx, []string{targetAccountID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify target account: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("target account %s: %w", targetAccountID, ledger.ErrAccountNotFound)
	}

	transferID, err := s.ledger.CreateTransfer(ctx, loanAccountID, targetAccountID,
		amount, s.currency, ledger.TransferCodeLoanDisbursement)
	if err != nil {
		return nil, fmt.Errorf("failed to disburse loan: %w", err)
	}

	s.log.Infof("Disbursed %d from loan %s to account %s (%s)",
		amount, loanAccountID, targetAccountID, description)
	return &models.Disbursement{
		TransferID:      transferID,
		DisbursedAmount: amount,
		Timestamp:       time.Now(),
	}, nil
}

// GetTransferHistory returns the projected transfer history for an account.
// The projection is eventually consistent with the ledger.
func (s *Service) GetTransferHistory(accountID string) ([]*models.TransferRecord, error) {
	return s.store.FindTransfersByAccount(accountID)
}

// GetAccountBalance reads the live debit/credit totals from the ledger.
func (s *Service) GetAccountBalance(ctx context.Context, accountID string) (*ledger.Balance, error) {
	return s.ledger.GetAccountBalance(ctx, accountID)
}
