// Package report builds the spending report (calendar month or date range)
// and the month ledger grouped by day.
package report

import (
	"slices"
	"time"

	"pinledger/internal/budget"
	"pinledger/internal/core"
	"pinledger/internal/filtering"
)

// Mode selects how the report window is defined.
type Mode string

const (
	ModeMonth Mode = "month"
	ModeRange Mode = "range"
)

// Window is a report period. For ModeMonth only Start's year and month count.
type Window struct {
	Mode  Mode
	Start time.Time
	End   time.Time
}

// MonthWindow returns the window for a calendar month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Mode: ModeMonth, Start: start, End: core.EndOfDay(start.AddDate(0, 1, -1))}
}

// RangeWindow returns an inclusive range; end is extended to end of day.
func RangeWindow(start, end time.Time) Window {
	return Window{Mode: ModeRange, Start: core.StartOfDay(start), End: core.EndOfDay(end)}
}

// DefaultWindow mirrors the budget period so the report opens on the same
// window the budget is evaluated against. Without a budget it is the current
// month.
func DefaultWindow(cfg core.BudgetConfig, now time.Time) Window {
	if cfg.Amount.Cents > 0 {
		switch cfg.Period {
		case core.PeriodCustom:
			if start, end, ok := cfg.CustomRange(now.Location()); ok {
				return Window{Mode: ModeRange, Start: start, End: end}
			}
		case core.PeriodWeekly:
			offset := int(now.Weekday()) - 1
			if now.Weekday() == time.Sunday {
				offset = 6
			}
			monday := core.StartOfDay(now.AddDate(0, 0, -offset))
			return RangeWindow(monday, monday.AddDate(0, 0, 6))
		case core.PeriodYearly:
			return RangeWindow(
				time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
				time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()),
			)
		}
	}
	return MonthWindow(now.Year(), now.Month(), now.Location())
}

func (w Window) contains(t time.Time) bool {
	if w.Mode == ModeMonth {
		t = t.In(w.Start.Location())
		return t.Year() == w.Start.Year() && t.Month() == w.Start.Month()
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// Build aggregates txs over w and compares the total with cfg.
func Build(txs []core.Transaction, w Window, cfg core.BudgetConfig) core.Report {
	r := core.Report{
		Start:   w.Start,
		End:     w.End,
		Monthly: w.Mode == ModeMonth,
	}
	if r.Monthly {
		r.DailySpend = make(map[int]core.Money)
		r.LeadingBlank = int(w.Start.Weekday())
		r.DaysInMonth = w.Start.AddDate(0, 1, -1).Day()
	}

	byCat := map[string]int{}
	for _, t := range txs {
		if !w.contains(t.Date) {
			continue
		}
		r.Transactions = append(r.Transactions, t)
		r.Total = r.Total.Add(t.Amount)

		i, ok := byCat[t.Category]
		if !ok {
			i = len(r.ByCategory)
			byCat[t.Category] = i
			r.ByCategory = append(r.ByCategory, core.CategoryAmount{Name: t.Category})
		}
		r.ByCategory[i].Amount = r.ByCategory[i].Amount.Add(t.Amount)

		if r.Monthly {
			d := t.Date.In(w.Start.Location()).Day()
			r.DailySpend[d] = r.DailySpend[d].Add(t.Amount)
		}
	}
	slices.SortStableFunc(r.ByCategory, func(a, b core.CategoryAmount) int {
		switch {
		case a.Amount.Cents > b.Amount.Cents:
			return -1
		case a.Amount.Cents < b.Amount.Cents:
			return 1
		}
		return 0
	})
	r.Budget = budget.Status(r.Total, cfg)
	return r
}

// Day returns the report transactions on a given day of the month. It is
// only meaningful for month reports.
func Day(r core.Report, day int) []core.Transaction {
	if !r.Monthly {
		return nil
	}
	var out []core.Transaction
	for _, t := range r.Transactions {
		if t.Date.In(r.Start.Location()).Day() == day {
			out = append(out, t)
		}
	}
	return out
}

// BuildLedger lists the month's transactions newest first, grouped by day.
func BuildLedger(txs []core.Transaction, year int, month time.Month, loc *time.Location) core.Ledger {
	w := MonthWindow(year, month, loc)
	l := core.Ledger{Year: year, Month: int(month)}

	var in []core.Transaction
	for _, t := range txs {
		if w.contains(t.Date) {
			in = append(in, t)
		}
	}
	filtering.SortNewestFirst(in)

	for _, t := range in {
		day := core.StartOfDay(t.Date.In(loc))
		n := len(l.Days)
		if n == 0 || !l.Days[n-1].Date.Equal(day) {
			l.Days = append(l.Days, core.LedgerDay{Date: day, Label: day.Format("Mon, Jan 2")})
			n++
		}
		l.Days[n-1].Transactions = append(l.Days[n-1].Transactions, t)
		l.Days[n-1].Total = l.Days[n-1].Total.Add(t.Amount)
		l.Total = l.Total.Add(t.Amount)
	}
	return l
}
