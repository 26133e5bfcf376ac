// Package budget evaluates personal spending against the configured budget
// and produces threshold alerts.
package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"pinledger/internal/core"
)

const (
	TitleExceeded    = "Budget Exceeded"
	TitleApproaching = "Approaching Budget Limit"

	// WarnRatio is the spend/budget ratio that triggers the approaching alert.
	WarnRatio = 0.8
)

// Evaluation is the outcome of one monitor pass. Alert is nil when no new
// notification should be raised.
type Evaluation struct {
	Spent core.Money
	Ratio float64
	Alert *core.NotificationItem
}

// Monitor is stateless; dedup relies on the notifications passed in.
type Monitor struct {
	newID func(prefix string) string
}

func NewMonitor() *Monitor {
	return &Monitor{newID: func(prefix string) string {
		return prefix + "_" + uuid.NewString()
	}}
}

// InPeriod reports whether d falls in cfg's period as seen from now.
func InPeriod(d time.Time, cfg core.BudgetConfig, now time.Time) bool {
	switch cfg.Period {
	case core.PeriodMonthly:
		return d.Year() == now.Year() && d.Month() == now.Month()
	case core.PeriodYearly:
		return d.Year() == now.Year()
	case core.PeriodWeekly:
		return !d.Before(now.AddDate(0, 0, -7)) && !d.After(now)
	case core.PeriodCustom:
		start, end, ok := cfg.CustomRange(now.Location())
		if !ok {
			return false
		}
		return !d.Before(start) && !d.After(end)
	default:
		return false
	}
}

// Spent sums the transactions inside cfg's period.
func Spent(txs []core.Transaction, cfg core.BudgetConfig, now time.Time) core.Money {
	var total core.Money
	for _, t := range txs {
		if InPeriod(t.Date.In(now.Location()), cfg, now) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Evaluate checks mine against cfg. A budget of zero or less disables the
// monitor entirely.
func (m *Monitor) Evaluate(mine []core.Transaction, cfg core.BudgetConfig, existing []core.NotificationItem, now time.Time) Evaluation {
	if cfg.Amount.Cents <= 0 {
		return Evaluation{}
	}
	spent := Spent(mine, cfg, now)
	ratio := spent.Ratio(cfg.Amount)
	ev := Evaluation{Spent: spent, Ratio: ratio}

	period := cfg.Period.Display()
	switch {
	case ratio >= 1.0:
		if hasUnread(existing, TitleExceeded) {
			return ev
		}
		ev.Alert = m.alert("alert_over", TitleExceeded,
			fmt.Sprintf("You have exceeded your %s budget of $%s.", period, humanize.Commaf(cfg.Amount.Float())))
	case ratio >= WarnRatio:
		if hasUnread(existing, TitleApproaching) {
			return ev
		}
		ev.Alert = m.alert("alert_near", TitleApproaching,
			fmt.Sprintf("You have used %d%% of your %s budget.", int(math.Round(ratio*100)), period))
	}
	return ev
}

// Status compares an arbitrary spent total with the budget, as shown on the
// report screen.
func Status(spent core.Money, cfg core.BudgetConfig) core.BudgetStatus {
	if cfg.Amount.Cents <= 0 {
		return core.BudgetStatus{}
	}
	progress := float64(spent.Cents) / float64(cfg.Amount.Cents) * 100
	remaining := cfg.Amount.Cents - spent.Cents
	if remaining < 0 {
		remaining = 0
	}
	return core.BudgetStatus{
		Progress:  progress,
		IsOver:    progress > 100,
		Remaining: core.Money{Cents: remaining},
		Spent:     spent,
	}
}

func (m *Monitor) alert(prefix, title, msg string) *core.NotificationItem {
	return &core.NotificationItem{
		ID:      m.newID(prefix),
		Type:    core.NotifySystemAlert,
		Title:   title,
		Message: msg,
		TimeAgo: "Just now",
	}
}

func hasUnread(items []core.NotificationItem, title string) bool {
	for _, n := range items {
		if n.Title == title && !n.IsRead {
			return true
		}
	}
	return false
}
