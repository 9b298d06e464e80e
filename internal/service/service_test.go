package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bankops/backoffice/internal/amortization"
	"github.com/bankops/backoffice/internal/ledger"
	"github.com/bankops/backoffice/internal/models"
	"github.com/bankops/backoffice/internal/repository"
)

type fakeStore struct {
	plans     map[string]*models.PaymentPlan
	funding   map[string]string
	transfers map[string][]*models.TransferRecord
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:     map[string]*models.PaymentPlan{},
		funding:   map[string]string{},
		transfers: map[string][]*models.TransferRecord{},
	}
}

func (f *fakeStore) SavePlan(plan *models.PaymentPlan) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.plans[plan.AccountID] = plan
	return nil
}

func (f *fakeStore) FindPlanByAccountID(accountID string) (*models.PaymentPlan, error) {
	if plan, ok := f.plans[accountID]; ok {
		return plan, nil
	}
	return nil, repository.ErrPlanNotFound
}

func (f *fakeStore) FindAllPlans() ([]*models.PaymentPlan, error) {
	var plans []*models.PaymentPlan
	for _, plan := range f.plans {
		plans = append(plans, plan)
	}
	return plans, nil
}

func (f *fakeStore) DeletePlan(accountID string) error {
	if _, ok := f.plans[accountID]; !ok {
		return repository.ErrPlanNotFound
	}
	delete(f.plans, accountID)
	return nil
}

func (f *fakeStore) SaveFundingAccount(customerID, accountID string) error {
	f.funding[customerID] = accountID
	return nil
}

func (f *fakeStore) FindTransfersByAccount(accountID string) ([]*models.TransferRecord, error) {
	return f.transfers[accountID], nil
}

type fakeLedger struct {
	accountSeq  int
	transferSeq int
	accounts    []string
	transferErr error
}

func (f *fakeLedger) CreateAccount(ctx context.Context, ledgerCode, accountCode int) (string, error) {
	f.accountSeq++
	id := "loan-acct-" + string(rune('0'+f.accountSeq))
	f.accounts = append(f.accounts, id)
	return id, nil
}

func (f *fakeLedger) CreateTransfer(ctx context.Context, from, to string, amount int64, currency string, code int) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.transferSeq++
	return "transfer-" + string(rune('0'+f.transferSeq)), nil
}

func (f *fakeLedger) GetAccountBalance(ctx context.Context, accountID string) (*ledger.Balance, error) {
	return &ledger.Balance{AccountID: accountID, Balance: 1_000_000}, nil
}

func (f *fakeLedger) LookupAccounts(ctx context.Context, ids []string) ([]ledger.Account, error) {
	var accounts []ledger.Account
	for _, id := range ids {
		if id == "missing-target" {
			continue
		}
		accounts = append(accounts, ledger.Account{ID: id})
	}
	return accounts, nil
}

type fixedRate float64

func (r fixedRate) GetReferenceRate() (float64, error) { return float64(r), nil }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(store Store, lc LedgerClient, rates RateSource) *Service {
	return NewService(store, lc, rates, 840, "USD", testLogger())
}

func validTerms() models.LoanTerms {
	return models.LoanTerms{
		CustomerID:       "cust-1",
		PrincipalAmount:  20_000_000,
		InterestRate:     4.5,
		TermMonths:       360,
		LoanType:         models.LoanTypeAnnuity,
		PaymentFrequency: models.FrequencyMonthly,
		FundingAccountID: "dep-1",
		FirstPaymentDate: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateLoanWithPaymentPlan(t *testing.T) {
	store := newFakeStore()
	lc := &fakeLedger{}
	terms := validTerms()
	terms.Fees = []models.Fee{{Type: "ORIGINATION", Amount: 50_000, Description: "Origination fee"}}

	created, err := newTestService(store, lc, nil).CreateLoanWithPaymentPlan(context.Background(), terms)
	if err != nil {
		t.Fatal(err)
	}
	if created.MonthlyPayment < 101_300 || created.MonthlyPayment > 101_400 {
		t.Fatalf("monthly payment = %d, want ~101,350", created.MonthlyPayment)
	}
	if created.TotalLoanAmount != 20_050_000 {
		t.Fatalf("total loan amount = %d, want principal plus fees", created.TotalLoanAmount)
	}

	plan := store.plans[created.AccountID]
	if plan == nil {
		t.Fatal("plan must be persisted with the new loan account")
	}
	if plan.RemainingPayments != 360 {
		t.Fatalf("remaining payments = %d, want full term", plan.RemainingPayments)
	}
	if !plan.NextPaymentDate.Equal(terms.FirstPaymentDate) {
		t.Fatalf("next payment date = %s, want %s", plan.NextPaymentDate, terms.FirstPaymentDate)
	}
	if store.funding["cust-1"] != "dep-1" {
		t.Fatalf("funding mapping = %v, want cust-1 -> dep-1", store.funding)
	}
}

func TestCreateLoanRejectsInvalidTerms(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.LoanTerms)
	}{
		{"negative rate", func(tm *models.LoanTerms) { tm.InterestRate = -1 }},
		{"rate above 100", func(tm *models.LoanTerms) { tm.InterestRate = 101 }},
		{"zero term", func(tm *models.LoanTerms) { tm.TermMonths = 0 }},
		{"term above 480", func(tm *models.LoanTerms) { tm.TermMonths = 481 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			lc := &fakeLedger{}
			terms := validTerms()
			tt.mutate(&terms)

			_, err := newTestService(store, lc, nil).CreateLoanWithPaymentPlan(context.Background(), terms)
			if !errors.Is(err, amortization.ErrInvalidLoanParameters) {
				t.Fatalf("want ErrInvalidLoanParameters, got %v", err)
			}
			if len(lc.accounts) != 0 {
				t.Fatal("no ledger account may be opened for invalid terms")
			}
			if len(store.plans) != 0 {
				t.Fatal("no plan may be persisted for invalid terms")
			}
		})
	}
}

func TestCreateLoanEnforcesRateFloor(t *testing.T) {
	terms := validTerms() // 4.5%
	_, err := newTestService(newFakeStore(), &fakeLedger{}, fixedRate(10)).
		CreateLoanWithPaymentPlan(context.Background(), terms)
	if !errors.Is(err, amortization.ErrInvalidLoanParameters) {
		t.Fatalf("want rejection below reference rate, got %v", err)
	}

	if _, err := newTestService(newFakeStore(), &fakeLedger{}, fixedRate(4)).
		CreateLoanWithPaymentPlan(context.Background(), terms); err != nil {
		t.Fatalf("rate above floor must pass: %v", err)
	}
}

func TestGenerateAmortizationSchedule(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLedger{}, nil)

	created, err := svc.CreateLoanWithPaymentPlan(context.Background(), validTerms())
	if err != nil {
		t.Fatal(err)
	}

	schedule, err := svc.GenerateAmortizationSchedule(created.AccountID)
	if err != nil {
		t.Fatal(err)
	}
	if len(schedule.Schedule) != 360 {
		t.Fatalf("schedule entries = %d, want 360", len(schedule.Schedule))
	}
	if schedule.TotalInterest != schedule.TotalPayments-20_000_000 {
		t.Fatalf("totals inconsistent: payments=%d interest=%d",
			schedule.TotalPayments, schedule.TotalInterest)
	}

	if _, err := svc.GenerateAmortizationSchedule("missing"); !errors.Is(err, repository.ErrPlanNotFound) {
		t.Fatalf("want ErrPlanNotFound, got %v", err)
	}
}

func TestDisburseLoan(t *testing.T) {
	store := newFakeStore()
	lc := &fakeLedger{}
	svc := newTestService(store, lc, nil)

	created, err := svc.CreateLoanWithPaymentPlan(context.Background(), validTerms())
	if err != nil {
		t.Fatal(err)
	}

	// Zero amount disburses the full principal.
	d, err := svc.DisburseLoan(context.Background(), created.AccountID, "dep-1", 0, "initial payout")
	if err != nil {
		t.Fatal(err)
	}
	if d.DisbursedAmount != 20_000_000 {
		t.Fatalf("disbursed = %d, want full principal", d.DisbursedAmount)
	}
	if d.TransferID == "" {
		t.Fatal("disbursement must carry the ledger transfer id")
	}

	if _, err := svc.DisburseLoan(context.Background(), created.AccountID, "dep-1", 30_000_000, ""); !errors.Is(err, amortization.ErrInvalidLoanParameters) {
		t.Fatalf("over-principal disbursement must be rejected, got %v", err)
	}
	if _, err := svc.DisburseLoan(context.Background(), "missing", "dep-1", 0, ""); !errors.Is(err, repository.ErrPlanNotFound) {
		t.Fatalf("want ErrPlanNotFound, got %v", err)
	}
	if _, err := svc.DisburseLoan(context.Background(), created.AccountID, "missing-target", 0, ""); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("unknown target account must be rejected, got %v", err)
	}
}
