package amortization

import (
	"errors"
	"testing"

	"github.com/bankops/backoffice/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		rate      float64
		terms     int
		wantErr   bool
	}{
		{"valid", 1_000_000, 4.5, 360, false},
		{"zero rate", 1_000_000, 0, 12, false},
		{"max term", 1_000_000, 5, 480, false},
		{"negative rate", 1_000_000, -0.1, 12, true},
		{"rate above 100", 1_000_000, 100.5, 12, true},
		{"zero term", 1_000_000, 5, 0, true},
		{"negative term", 1_000_000, 5, -3, true},
		{"term above max", 1_000_000, 5, 481, true},
		{"zero principal", 0, 5, 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.principal, tt.rate, tt.terms)
			if tt.wantErr && !errors.Is(err, ErrInvalidLoanParameters) {
				t.Fatalf("want ErrInvalidLoanParameters, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// A 30-year annuity loan of 20,000,000 minor units at 4.5% pays roughly
// 101,350 per month, and the schedule repays the principal to the unit.
func TestAnnuityConcrete(t *testing.T) {
	const principal = int64(20_000_000)
	payment, err := PaymentAmount(principal, 4.5, 360, models.LoanTypeAnnuity, models.FrequencyMonthly)
	if err != nil {
		t.Fatal(err)
	}
	if payment < 101_300 || payment > 101_400 {
		t.Fatalf("monthly payment = %d, want ~101,350", payment)
	}

	entries, err := Schedule(principal, 4.5, 360, models.LoanTypeAnnuity, models.FrequencyMonthly)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 360 {
		t.Fatalf("schedule has %d entries, want 360", len(entries))
	}

	var sumPrincipal int64
	for _, e := range entries {
		sumPrincipal += e.PrincipalAmount
	}
	if sumPrincipal != principal {
		t.Fatalf("principal portions sum to %d, want exactly %d", sumPrincipal, principal)
	}
	if last := entries[len(entries)-1]; last.RemainingBalance != 0 {
		t.Fatalf("remaining balance after final period = %d, want 0", last.RemainingBalance)
	}

	// Interest portion shrinks as the balance declines.
	if entries[0].InterestAmount <= entries[359].InterestAmount {
		t.Fatalf("interest should decline: first=%d last=%d",
			entries[0].InterestAmount, entries[359].InterestAmount)
	}
}

func TestSerialSchedule(t *testing.T) {
	const principal = int64(1_000_000)
	entries, err := Schedule(principal, 10, 12, models.LoanTypeSerial, models.FrequencyMonthly)
	if err != nil {
		t.Fatal(err)
	}

	var sumPrincipal int64
	for _, e := range entries {
		sumPrincipal += e.PrincipalAmount
	}
	if sumPrincipal != principal {
		t.Fatalf("principal portions sum to %d, want exactly %d", sumPrincipal, principal)
	}
	if entries[len(entries)-1].RemainingBalance != 0 {
		t.Fatalf("remaining balance after final period = %d, want 0",
			entries[len(entries)-1].RemainingBalance)
	}

	// Equal principal portions except the final remainder period.
	for i := 0; i < len(entries)-1; i++ {
		if entries[i].PrincipalAmount != principal/12 {
			t.Fatalf("period %d principal = %d, want %d", i+1, entries[i].PrincipalAmount, principal/12)
		}
	}

	// Total payment declines period over period.
	for i := 1; i < len(entries)-1; i++ {
		if entries[i].PaymentAmount >= entries[i-1].PaymentAmount {
			t.Fatalf("payment should decline: period %d=%d period %d=%d",
				i, entries[i-1].PaymentAmount, i+1, entries[i].PaymentAmount)
		}
	}
}

// The exact-repayment invariant holds for awkward principals and every
// frequency and loan type.
func TestScheduleRepaysExactly(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		rate      float64
		terms     int
		loanType  models.LoanType
		freq      models.PaymentFrequency
	}{
		{"annuity weekly odd principal", 999_999, 7.25, 52, models.LoanTypeAnnuity, models.FrequencyWeekly},
		{"annuity quarterly", 5_000_000, 3.9, 40, models.LoanTypeAnnuity, models.FrequencyQuarterly},
		{"annuity annual single period", 123_457, 12, 1, models.LoanTypeAnnuity, models.FrequencyAnnually},
		{"serial bi-weekly", 777_777, 8.5, 26, models.LoanTypeSerial, models.FrequencyBiWeekly},
		{"serial semi-annual", 3_333_333, 6, 10, models.LoanTypeSerial, models.FrequencySemiAnnually},
		{"tiny principal long term", 100, 5, 48, models.LoanTypeAnnuity, models.FrequencyMonthly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Schedule(tt.principal, tt.rate, tt.terms, tt.loanType, tt.freq)
			if err != nil {
				t.Fatal(err)
			}
			var sumPrincipal, sumPayments, sumInterest int64
			for _, e := range entries {
				sumPrincipal += e.PrincipalAmount
				sumPayments += e.PaymentAmount
				sumInterest += e.InterestAmount
			}
			if sumPrincipal != tt.principal {
				t.Fatalf("principal portions sum to %d, want %d", sumPrincipal, tt.principal)
			}
			if entries[len(entries)-1].RemainingBalance != 0 {
				t.Fatalf("final balance = %d, want 0", entries[len(entries)-1].RemainingBalance)
			}
			if sumPayments != tt.principal+sumInterest {
				t.Fatalf("total payments %d != principal %d + interest %d",
					sumPayments, tt.principal, sumInterest)
			}
			gotPayments, gotInterest := Totals(entries)
			if gotPayments != sumPayments || gotInterest != sumInterest {
				t.Fatalf("Totals() = (%d, %d), want (%d, %d)",
					gotPayments, gotInterest, sumPayments, sumInterest)
			}
		})
	}
}

func TestZeroRateAnnuity(t *testing.T) {
	payment, err := PaymentAmount(1_200_000, 0, 12, models.LoanTypeAnnuity, models.FrequencyMonthly)
	if err != nil {
		t.Fatal(err)
	}
	if payment != 100_000 {
		t.Fatalf("payment = %d, want 100000", payment)
	}

	entries, err := Schedule(1_200_000, 0, 12, models.LoanTypeAnnuity, models.FrequencyMonthly)
	if err != nil {
		t.Fatal(err)
	}
	_, totalInterest := Totals(entries)
	if totalInterest != 0 {
		t.Fatalf("total interest = %d, want 0", totalInterest)
	}
}

func TestUnknownFrequencyAndType(t *testing.T) {
	if _, err := PaymentAmount(1_000_000, 5, 12, models.LoanTypeAnnuity, "FORTNIGHTLY"); !errors.Is(err, ErrInvalidLoanParameters) {
		t.Fatalf("want ErrInvalidLoanParameters for unknown frequency, got %v", err)
	}
	if _, err := PaymentAmount(1_000_000, 5, 12, "BALLOON", models.FrequencyMonthly); !errors.Is(err, ErrInvalidLoanParameters) {
		t.Fatalf("want ErrInvalidLoanParameters for unknown loan type, got %v", err)
	}
}
