// Package amortization computes loan payment amounts and repayment
// schedules. All monetary values are integer minor currency units; rate
// arithmetic uses decimals so schedules never accumulate float drift.
package amortization

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bankops/backoffice/internal/models"
)

// ErrInvalidLoanParameters is returned when loan terms fail validation.
// Callers are expected to validate at origination; the scheduler never sees
// an invalid plan.
var ErrInvalidLoanParameters = errors.New("invalid loan parameters")

const maxTermMonths = 480

// Validate checks loan terms against the allowed ranges.
func Validate(principal int64, annualRate float64, terms int) error {
	if principal <= 0 {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidLoanParameters)
	}
	if annualRate < 0 {
		return fmt.Errorf("%w: interest rate cannot be negative", ErrInvalidLoanParameters)
	}
	if annualRate > 100 {
		return fmt.Errorf("%w: interest rate cannot exceed 100%%", ErrInvalidLoanParameters)
	}
	if terms <= 0 {
		return fmt.Errorf("%w: term must be positive", ErrInvalidLoanParameters)
	}
	if terms > maxTermMonths {
		return fmt.Errorf("%w: term cannot exceed %d periods", ErrInvalidLoanParameters, maxTermMonths)
	}
	return nil
}

// PaymentAmount computes the per-period payment for the given terms. For
// ANNUITY loans every period pays this amount; for SERIAL loans payments
// decline over time and the returned value is the first (largest) payment.
func PaymentAmount(principal int64, annualRate float64, terms int, loanType models.LoanType, freq models.PaymentFrequency) (int64, error) {
	if err := Validate(principal, annualRate, terms); err != nil {
		return 0, err
	}
	ppy := freq.PeriodsPerYear()
	if ppy == 0 {
		return 0, fmt.Errorf("%w: unknown payment frequency %q", ErrInvalidLoanParameters, freq)
	}

	rate := periodRate(annualRate, ppy)
	p := decimal.NewFromInt(principal)
	n := int64(terms)

	switch loanType {
	case models.LoanTypeSerial:
		// First period: fixed principal portion plus interest on the full
		// balance.
		basePrincipal := principal / n
		interest := p.Mul(rate).Round(0).IntPart()
		return basePrincipal + interest, nil
	case models.LoanTypeAnnuity:
		if rate.IsZero() {
			return decimal.NewFromInt(principal).Div(decimal.NewFromInt(n)).Round(0).IntPart(), nil
		}
		// payment = P * r * (1+r)^n / ((1+r)^n - 1)
		growth := decimal.NewFromInt(1).Add(rate).Pow(decimal.NewFromInt(n))
		payment := p.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
		return payment.Round(0).IntPart(), nil
	default:
		return 0, fmt.Errorf("%w: unknown loan type %q", ErrInvalidLoanParameters, loanType)
	}
}

// Schedule generates the full repayment schedule. The principal portions sum
// to the principal exactly: any rounding remainder is absorbed by the final
// period so the remaining balance after the last entry is zero.
func Schedule(principal int64, annualRate float64, terms int, loanType models.LoanType, freq models.PaymentFrequency) ([]models.ScheduleEntry, error) {
	payment, err := PaymentAmount(principal, annualRate, terms, loanType, freq)
	if err != nil {
		return nil, err
	}

	rate := periodRate(annualRate, freq.PeriodsPerYear())
	entries := make([]models.ScheduleEntry, 0, terms)
	balance := principal
	basePrincipal := principal / int64(terms)

	for period := 1; period <= terms; period++ {
		interest := decimal.NewFromInt(balance).Mul(rate).Round(0).IntPart()

		var principalPart int64
		switch {
		case period == terms:
			principalPart = balance
		case loanType == models.LoanTypeSerial:
			principalPart = basePrincipal
		default:
			principalPart = payment - interest
		}
		if principalPart > balance {
			principalPart = balance
		}
		if principalPart < 0 {
			principalPart = 0
		}

		balance -= principalPart
		entries = append(entries, models.ScheduleEntry{
			PeriodNumber:     period,
			PaymentAmount:    principalPart + interest,
			PrincipalAmount:  principalPart,
			InterestAmount:   interest,
			RemainingBalance: balance,
		})
	}
	return entries, nil
}

// Totals sums a schedule into total payments and total interest.
func Totals(entries []models.ScheduleEntry) (totalPayments, totalInterest int64) {
	for _, e := range entries {
		totalPayments += e.PaymentAmount
		totalInterest += e.InterestAmount
	}
	return totalPayments, totalInterest
}

func periodRate(annualRate float64, periodsPerYear int) decimal.Decimal {
	return decimal.NewFromFloat(annualRate).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(periodsPerYear)))
}
