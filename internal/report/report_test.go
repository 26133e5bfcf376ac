package report

import (
	"testing"
	"time"

	"pinledger/internal/core"
)

func day(d, hour int) time.Time { return time.Date(2025, time.March, d, hour, 0, 0, 0, time.UTC) }

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: "a", Category: "Dining", Amount: core.Money{Cents: 1500}, Date: day(3, 12)},
		{ID: "b", Category: "Cafe", Amount: core.Money{Cents: 450}, Date: day(3, 9)},
		{ID: "c", Category: "Shopping", Amount: core.Money{Cents: 8000}, Date: day(10, 18)},
		{ID: "d", Category: "Dining", Amount: core.Money{Cents: 2500}, Date: day(31, 23)},
		{ID: "e", Category: "Dining", Amount: core.Money{Cents: 9999}, Date: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestBuildMonth(t *testing.T) {
	cfg := core.BudgetConfig{Amount: core.Money{Cents: 10000}, Period: core.PeriodMonthly}
	r := Build(sample(), MonthWindow(2025, time.March, time.UTC), cfg)

	if !r.Monthly || len(r.Transactions) != 4 || r.Total.Cents != 12450 {
		t.Fatalf("unexpected report: monthly=%v n=%d total=%d", r.Monthly, len(r.Transactions), r.Total.Cents)
	}
	want := []core.CategoryAmount{
		{Name: "Shopping", Amount: core.Money{Cents: 8000}},
		{Name: "Dining", Amount: core.Money{Cents: 4000}},
		{Name: "Cafe", Amount: core.Money{Cents: 450}},
	}
	if len(r.ByCategory) != len(want) {
		t.Fatalf("categories = %+v", r.ByCategory)
	}
	for i := range want {
		if r.ByCategory[i] != want[i] {
			t.Fatalf("category %d = %+v, want %+v", i, r.ByCategory[i], want[i])
		}
	}
	if r.DailySpend[3].Cents != 1950 || r.DailySpend[31].Cents != 2500 {
		t.Fatalf("daily spend = %v", r.DailySpend)
	}
	// March 1st 2025 is a Saturday.
	if r.LeadingBlank != 6 || r.DaysInMonth != 31 {
		t.Fatalf("calendar padding %d / %d", r.LeadingBlank, r.DaysInMonth)
	}
	if !r.Budget.IsOver || r.Budget.Remaining.Cents != 0 || r.Budget.Spent.Cents != 12450 {
		t.Fatalf("budget = %+v", r.Budget)
	}
	if got := Day(r, 3); len(got) != 2 {
		t.Fatalf("day 3 = %d transactions", len(got))
	}
}

func TestBuildRangeIncludesEndDay(t *testing.T) {
	r := Build(sample(), RangeWindow(day(3, 0), day(10, 0)), core.BudgetConfig{})
	if r.Monthly || r.DailySpend != nil {
		t.Fatalf("range report must not carry calendar data")
	}
	if len(r.Transactions) != 3 || r.Total.Cents != 9950 {
		t.Fatalf("range total = %d over %d", r.Total.Cents, len(r.Transactions))
	}
	if r.Budget != (core.BudgetStatus{}) {
		t.Fatalf("zero budget should give zero status, got %+v", r.Budget)
	}
	if Day(r, 3) != nil {
		t.Fatalf("day drill-down only applies to month mode")
	}
}

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2025, time.March, 16, 15, 0, 0, 0, time.UTC) // Sunday
	cases := []struct {
		name      string
		cfg       core.BudgetConfig
		mode      Mode
		startDay  int
		endMonth  time.Month
		endDay    int
		startYear int
	}{
		{"no budget", core.BudgetConfig{Period: core.PeriodWeekly}, ModeMonth, 1, time.March, 31, 2025},
		{"weekly sunday", core.BudgetConfig{Amount: core.Money{Cents: 1}, Period: core.PeriodWeekly}, ModeRange, 10, time.March, 16, 2025},
		{"yearly", core.BudgetConfig{Amount: core.Money{Cents: 1}, Period: core.PeriodYearly}, ModeRange, 1, time.December, 31, 2025},
		{"custom", core.BudgetConfig{Amount: core.Money{Cents: 1}, Period: core.PeriodCustom, CustomStart: "2025-02-05", CustomEnd: "2025-02-20"}, ModeRange, 5, time.February, 20, 2025},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := DefaultWindow(tc.cfg, now)
			if w.Mode != tc.mode || w.Start.Day() != tc.startDay || w.Start.Year() != tc.startYear {
				t.Fatalf("window = %+v", w)
			}
			if w.End.Month() != tc.endMonth || w.End.Day() != tc.endDay || w.End.Hour() != 23 {
				t.Fatalf("end = %v", w.End)
			}
		})
	}
}

func TestBuildLedger(t *testing.T) {
	l := BuildLedger(sample(), 2025, time.March, time.UTC)
	if l.Total.Cents != 12450 || len(l.Days) != 3 {
		t.Fatalf("ledger total=%d days=%d", l.Total.Cents, len(l.Days))
	}
	if l.Days[0].Date.Day() != 31 || l.Days[2].Date.Day() != 3 {
		t.Fatalf("days not newest first: %v, %v", l.Days[0].Date, l.Days[2].Date)
	}
	last := l.Days[2]
	if last.Total.Cents != 1950 || last.Transactions[0].ID != "a" || last.Label != "Mon, Mar 3" {
		t.Fatalf("day group %+v", last)
	}
}
