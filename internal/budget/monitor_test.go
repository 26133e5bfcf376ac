package budget

import (
	"strings"
	"testing"
	"time"

	"pinledger/internal/core"
)

var now = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func spend(id string, cents int64, d time.Time) core.Transaction {
	return core.Transaction{ID: id, Amount: core.Money{Cents: cents}, Date: d, MerchantName: "x"}
}

func TestEvaluateApproaching(t *testing.T) {
	m := NewMonitor()
	cfg := core.BudgetConfig{Amount: core.Money{Cents: 100000}, Period: core.PeriodMonthly}
	txs := []core.Transaction{
		spend("a", 50000, now.AddDate(0, 0, -3)),
		spend("b", 35000, now.AddDate(0, 0, -10)),
		spend("c", 90000, now.AddDate(0, -1, 0)), // previous month
	}

	ev := m.Evaluate(txs, cfg, nil, now)
	if ev.Spent.Cents != 85000 {
		t.Fatalf("spent = %d", ev.Spent.Cents)
	}
	if ev.Alert == nil || ev.Alert.Title != TitleApproaching {
		t.Fatalf("expected approaching alert, got %+v", ev.Alert)
	}
	if ev.Alert.Message != "You have used 85% of your monthly budget." {
		t.Fatalf("message = %q", ev.Alert.Message)
	}
	if ev.Alert.Type != core.NotifySystemAlert || ev.Alert.IsRead || ev.Alert.TimeAgo != "Just now" {
		t.Fatalf("unexpected alert fields %+v", ev.Alert)
	}

	again := m.Evaluate(txs, cfg, []core.NotificationItem{*ev.Alert}, now)
	if again.Alert != nil {
		t.Fatalf("duplicate alert emitted while previous is unread")
	}

	read := *ev.Alert
	read.IsRead = true
	if m.Evaluate(txs, cfg, []core.NotificationItem{read}, now).Alert == nil {
		t.Fatalf("alert should be re-emitted once the previous one is read")
	}
}

func TestEvaluateExceeded(t *testing.T) {
	m := NewMonitor()
	cfg := core.BudgetConfig{Amount: core.Money{Cents: 100000}, Period: core.PeriodYearly}
	txs := []core.Transaction{spend("a", 60000, now.AddDate(0, -4, 0)), spend("b", 40000, now)}

	ev := m.Evaluate(txs, cfg, nil, now)
	if ev.Alert == nil || ev.Alert.Title != TitleExceeded {
		t.Fatalf("expected exceeded alert, got %+v", ev.Alert)
	}
	if ev.Alert.Message != "You have exceeded your yearly budget of $1,000." {
		t.Fatalf("message = %q", ev.Alert.Message)
	}
	if !strings.HasPrefix(ev.Alert.ID, "alert_over_") {
		t.Fatalf("id = %q", ev.Alert.ID)
	}

	// An unread approaching alert does not block the exceeded one.
	near := core.NotificationItem{Title: TitleApproaching, Type: core.NotifySystemAlert}
	if m.Evaluate(txs, cfg, []core.NotificationItem{near}, now).Alert == nil {
		t.Fatalf("exceeded alert should not be blocked by approaching alert")
	}
}

func TestEvaluateDisabledAndBelowThreshold(t *testing.T) {
	m := NewMonitor()
	txs := []core.Transaction{spend("a", 10000, now)}
	if ev := m.Evaluate(txs, core.BudgetConfig{Period: core.PeriodMonthly}, nil, now); ev.Alert != nil || ev.Spent.Cents != 0 {
		t.Fatalf("zero budget must skip evaluation, got %+v", ev)
	}
	if ev := m.Evaluate(txs, core.BudgetConfig{Amount: core.Money{Cents: 100000}, Period: core.PeriodMonthly}, nil, now); ev.Alert != nil {
		t.Fatalf("10%% spend should not alert")
	}
}

func TestInPeriod(t *testing.T) {
	custom := core.BudgetConfig{Period: core.PeriodCustom, CustomStart: "2025-06-01", CustomEnd: "2025-06-10"}
	cases := []struct {
		name string
		d    time.Time
		cfg  core.BudgetConfig
		want bool
	}{
		{"weekly inside", now.AddDate(0, 0, -6), core.BudgetConfig{Period: core.PeriodWeekly}, true},
		{"weekly boundary", now.AddDate(0, 0, -7), core.BudgetConfig{Period: core.PeriodWeekly}, true},
		{"weekly too old", now.AddDate(0, 0, -8), core.BudgetConfig{Period: core.PeriodWeekly}, false},
		{"weekly future", now.Add(time.Minute), core.BudgetConfig{Period: core.PeriodWeekly}, false},
		{"monthly other year", now.AddDate(-1, 0, 0), core.BudgetConfig{Period: core.PeriodMonthly}, false},
		{"custom end of day", time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC), custom, true},
		{"custom after end", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), custom, false},
		{"custom missing end", now, core.BudgetConfig{Period: core.PeriodCustom, CustomStart: "2025-06-01"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InPeriod(tc.d, tc.cfg, now); got != tc.want {
				t.Fatalf("InPeriod = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCustomPeriodMessage(t *testing.T) {
	cfg := core.BudgetConfig{Amount: core.Money{Cents: 10000}, Period: core.PeriodCustom, CustomStart: "2025-06-01", CustomEnd: "2025-06-30"}
	ev := NewMonitor().Evaluate([]core.Transaction{spend("a", 9000, now)}, cfg, nil, now)
	if ev.Alert == nil || !strings.Contains(ev.Alert.Message, "custom period") {
		t.Fatalf("expected custom period wording, got %+v", ev.Alert)
	}
}

func TestStatus(t *testing.T) {
	cfg := core.BudgetConfig{Amount: core.Money{Cents: 50000}, Period: core.PeriodMonthly}
	st := Status(core.Money{Cents: 60000}, cfg)
	if !st.IsOver || st.Remaining.Cents != 0 || st.Progress != 120 {
		t.Fatalf("unexpected status %+v", st)
	}
	st = Status(core.Money{Cents: 20000}, cfg)
	if st.IsOver || st.Remaining.Cents != 30000 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st := Status(core.Money{Cents: 1}, core.BudgetConfig{}); st != (core.BudgetStatus{}) {
		t.Fatalf("zero budget must yield empty status")
	}
}
