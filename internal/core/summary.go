package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// BudgetStatus compares a spent total against the configured budget.
type BudgetStatus struct {
	Progress  float64 `json:"progress"` // percent, may exceed 100
	IsOver    bool    `json:"isOver"`
	Remaining Money   `json:"remaining"`
	Spent     Money   `json:"spent"`
}

// Report summarizes spending over a calendar month or an inclusive date range.
type Report struct {
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Monthly      bool             `json:"monthly"`
	Total        Money            `json:"total"`
	ByCategory   []CategoryAmount `json:"byCategory"`
	DailySpend   map[int]Money    `json:"dailySpend,omitempty"` // day of month -> total
	LeadingBlank int              `json:"leadingBlankDays,omitempty"`
	DaysInMonth  int              `json:"daysInMonth,omitempty"`
	Budget       BudgetStatus     `json:"budget"`
	Transactions []Transaction    `json:"transactions"`
}

// LedgerDay groups one calendar day of a ledger month.
type LedgerDay struct {
	Date         time.Time     `json:"date"`
	Label        string        `json:"label"`
	Total        Money         `json:"total"`
	Transactions []Transaction `json:"transactions"`
}

// Ledger lists a month's transactions newest first, grouped by day.
type Ledger struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Total Money       `json:"total"`
	Days  []LedgerDay `json:"days"`
}
