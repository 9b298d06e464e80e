package models

import "time"

// LoanType selects the repayment structure of a loan.
type LoanType string

const (
	LoanTypeAnnuity LoanType = "ANNUITY"
	LoanTypeSerial  LoanType = "SERIAL"
)

// PaymentFrequency is how often a scheduled payment falls due.
type PaymentFrequency string

const (
	FrequencyWeekly       PaymentFrequency = "WEEKLY"
	FrequencyBiWeekly     PaymentFrequency = "BI_WEEKLY"
	FrequencyMonthly      PaymentFrequency = "MONTHLY"
	FrequencyQuarterly    PaymentFrequency = "QUARTERLY"
	FrequencySemiAnnually PaymentFrequency = "SEMI_ANNUALLY"
	FrequencyAnnually     PaymentFrequency = "ANNUALLY"
)

// PeriodsPerYear returns the number of payment periods in a year for the
// frequency, or 0 for an unknown frequency.
func (f PaymentFrequency) PeriodsPerYear() int {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiWeekly:
		return 26
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencySemiAnnually:
		return 2
	case FrequencyAnnually:
		return 1
	default:
		return 0
	}
}

// Next advances a due date by one period. Month-based frequencies preserve
// the day of month, clamping to the last day of shorter months
// (Jan 31 + 1 month = Feb 28/29, never Mar 3).
func (f PaymentFrequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiWeekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return addMonthsClamped(from, 1)
	case FrequencyQuarterly:
		return addMonthsClamped(from, 3)
	case FrequencySemiAnnually:
		return addMonthsClamped(from, 6)
	case FrequencyAnnually:
		return addMonthsClamped(from, 12)
	default:
		return from
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Fee is a one-off charge added to the loan at origination. Fees contribute
// to the total loan amount but are not amortized.
type Fee struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// PaymentPlan holds the servicing state for one loan account. Monetary
// amounts are in minor currency units.
type PaymentPlan struct {
	AccountID         string           `json:"account_id"`
	CustomerID        string           `json:"customer_id"`
	PrincipalAmount   int64            `json:"principal_amount"`
	MonthlyPayment    int64            `json:"monthly_payment"`
	InterestRate      float64          `json:"interest_rate"`
	TermMonths        int              `json:"term_months"`
	LoanType          LoanType         `json:"loan_type"`
	PaymentFrequency  PaymentFrequency `json:"payment_frequency"`
	Fees              []Fee            `json:"fees,omitempty"`
	RemainingPayments int              `json:"remaining_payments"`
	NextPaymentDate   time.Time        `json:"next_payment_date"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// TotalLoanAmount is the principal plus all origination fees.
func (p *PaymentPlan) TotalLoanAmount() int64 {
	total := p.PrincipalAmount
	for _, fee := range p.Fees {
		total += fee.Amount
	}
	return total
}
