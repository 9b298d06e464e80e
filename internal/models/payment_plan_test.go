package models

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodsPerYear(t *testing.T) {
	tests := []struct {
		freq PaymentFrequency
		want int
	}{
		{FrequencyWeekly, 52},
		{FrequencyBiWeekly, 26},
		{FrequencyMonthly, 12},
		{FrequencyQuarterly, 4},
		{FrequencySemiAnnually, 2},
		{FrequencyAnnually, 1},
		{"FORTNIGHTLY", 0},
	}
	for _, tt := range tests {
		if got := tt.freq.PeriodsPerYear(); got != tt.want {
			t.Errorf("%s: PeriodsPerYear() = %d, want %d", tt.freq, got, tt.want)
		}
	}
}

func TestNextPaymentDate(t *testing.T) {
	tests := []struct {
		name string
		freq PaymentFrequency
		from time.Time
		want time.Time
	}{
		{"weekly", FrequencyWeekly, date(2024, time.March, 1), date(2024, time.March, 8)},
		{"bi-weekly", FrequencyBiWeekly, date(2024, time.March, 1), date(2024, time.March, 15)},
		{"monthly mid-month", FrequencyMonthly, date(2024, time.March, 15), date(2024, time.April, 15)},
		// Jan 31 + 1 month clamps to end of February, never Mar 3.
		{"monthly end-of-month leap", FrequencyMonthly, date(2024, time.January, 31), date(2024, time.February, 29)},
		{"monthly end-of-month non-leap", FrequencyMonthly, date(2023, time.January, 31), date(2023, time.February, 28)},
		{"monthly 30th into february", FrequencyMonthly, date(2023, time.January, 30), date(2023, time.February, 28)},
		{"quarterly clamp", FrequencyQuarterly, date(2024, time.August, 31), date(2024, time.November, 30)},
		{"semi-annual year rollover", FrequencySemiAnnually, date(2024, time.August, 15), date(2025, time.February, 15)},
		{"annual leap day", FrequencyAnnually, date(2024, time.February, 29), date(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.freq.Next(tt.from); !got.Equal(tt.want) {
				t.Fatalf("Next(%s) = %s, want %s",
					tt.from.Format("2006-01-02"), got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

// Clamping only applies to the period that lands on a short month; the day
// of month is preserved once the month allows it again.
func TestNextPreservesDayAfterClamp(t *testing.T) {
	d := FrequencyMonthly.Next(date(2024, time.January, 31)) // Feb 29
	d = FrequencyMonthly.Next(d)                             // Mar 29
	if want := date(2024, time.March, 29); !d.Equal(want) {
		t.Fatalf("got %s, want %s", d.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestTotalLoanAmount(t *testing.T) {
	plan := &PaymentPlan{
		PrincipalAmount: 1_000_000,
		Fees: []Fee{
			{Type: "ORIGINATION", Amount: 15_000, Description: "Origination fee"},
			{Type: "PROCESSING", Amount: 2_500, Description: "Processing fee"},
		},
	}
	if got := plan.TotalLoanAmount(); got != 1_017_500 {
		t.Fatalf("TotalLoanAmount() = %d, want 1017500", got)
	}

	noFees := &PaymentPlan{PrincipalAmount: 500}
	if got := noFees.TotalLoanAmount(); got != 500 {
		t.Fatalf("TotalLoanAmount() = %d, want 500", got)
	}
}
