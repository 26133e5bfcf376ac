package core

import (
	"fmt"
	"time"
)

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
	PeriodCustom  BudgetPeriod = "custom"
)

const (
	PersonaStandard    Persona = "standard"
	PersonaMom         Persona = "mom"
	PersonaRobot       Persona = "robot"
	PersonaCheerleader Persona = "cheerleader"
	PersonaScrooge     Persona = "scrooge"
)

// DateLayout is the YYYY-MM-DD layout used for custom budget bounds and
// receipt dates.
const DateLayout = "2006-01-02"

type (
	BudgetPeriod string
	Persona      string

	BudgetConfig struct {
		Amount      Money        `json:"amount"`
		Period      BudgetPeriod `json:"period"`
		CustomStart string       `json:"customStart,omitempty"`
		CustomEnd   string       `json:"customEnd,omitempty"`
	}
)

func (p BudgetPeriod) Validate() error {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
}

// Display is the human label used in budget alerts.
func (p BudgetPeriod) Display() string {
	if p == PeriodCustom {
		return "custom period"
	}
	return string(p)
}

func (b BudgetConfig) Validate() error {
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if b.Period == PeriodCustom {
		for _, s := range []string{b.CustomStart, b.CustomEnd} {
			if s == "" {
				continue
			}
			if _, err := time.Parse(DateLayout, s); err != nil {
				return fmt.Errorf("invalid custom date %q: %w", s, err)
			}
		}
	}
	return nil
}

// CustomRange resolves the custom bounds in loc. The end bound is extended to
// the last millisecond of its day. ok is false unless both bounds parse.
func (b BudgetConfig) CustomRange(loc *time.Location) (start, end time.Time, ok bool) {
	if b.CustomStart == "" || b.CustomEnd == "" {
		return time.Time{}, time.Time{}, false
	}
	s, err := time.ParseInLocation(DateLayout, b.CustomStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	e, err := time.ParseInLocation(DateLayout, b.CustomEnd, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return s, EndOfDay(e), true
}

// EndOfDay returns 23:59:59.999 on t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartOfDay returns local midnight on t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (p Persona) Validate() error {
	switch p {
	case PersonaStandard, PersonaMom, PersonaRobot, PersonaCheerleader, PersonaScrooge:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPersona, string(p))
	}
}
