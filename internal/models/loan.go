package models

import "time"

// LoanTerms is the request DTO for loan origination.
type LoanTerms struct {
	CustomerID       string           `json:"customer_id"`
	PrincipalAmount  int64            `json:"principal_amount"`
	InterestRate     float64          `json:"interest_rate"`
	TermMonths       int              `json:"term_months"`
	LoanType         LoanType         `json:"loan_type"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency"`
	Fees             []Fee            `json:"fees,omitempty"`
	FundingAccountID string           `json:"funding_account_id,omitempty"`
	FirstPaymentDate time.Time        `json:"first_payment_date,omitempty"`
}

// LoanCreated is the origination response.
type LoanCreated struct {
	AccountID      string `json:"account_id"`
	MonthlyPayment int64  `json:"monthly_payment"`
	TotalLoanAmount int64 `json:"total_loan_amount"`
}

// ScheduleEntry is one row of a generated amortization schedule.
type ScheduleEntry struct {
	PeriodNumber     int   `json:"period_number"`
	PaymentAmount    int64 `json:"payment_amount"`
	PrincipalAmount  int64 `json:"principal_amount"`
	InterestAmount   int64 `json:"interest_amount"`
	RemainingBalance int64 `json:"remaining_balance"`
}

// AmortizationSchedule is the full schedule response for a loan.
type AmortizationSchedule struct {
	AccountID     string          `json:"account_id"`
	TotalPayments int64           `json:"total_payments"`
	TotalInterest int64           `json:"total_interest"`
	Schedule      []ScheduleEntry `json:"schedule"`
}

// Disbursement is the result of paying out loan funds to a customer account.
type Disbursement struct {
	TransferID      string    `json:"transfer_id"`
	DisbursedAmount int64     `json:"disbursed_amount"`
	Timestamp       time.Time `json:"timestamp"`
}
