// Package pages holds the state behind each screen of the planner: what is
// loaded, what the user typed, and what went wrong. Controllers never panic
// or return data they could not fetch consistently; every failure ends up in
// the page state while previously loaded data stays visible.
package pages

import (
	"context"
	"errors"

	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/records"
	"finplan/internal/session"
)

// ErrBusy is returned when a mutation is attempted while another is in flight.
var ErrBusy = errors.New("another request is still in progress")

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	// StatusSetupIncomplete: the user has not saved a fixed configuration yet.
	StatusSetupIncomplete
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusSetupIncomplete:
		return "setup-incomplete"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reader is what the read-only pages need from a record store.
type Reader interface {
	records.FixedConfigReader
	records.ExpenseLister
}

// MonthlyTotals reports spent per month (fixed total included) and the fixed income.
type MonthlyTotals interface {
	MonthlyExpenses(ctx context.Context, user session.Identity) (map[core.Month]core.Money, core.Money, error)
}

// FromRecords computes MonthlyTotals from a plain record store.
func FromRecords(r Reader) MonthlyTotals {
	return recordTotals{r: r}
}

type recordTotals struct{ r Reader }

func (t recordTotals) MonthlyExpenses(ctx context.Context, user session.Identity) (map[core.Month]core.Money, core.Money, error) {
	cfg, err := t.r.FixedConfig(ctx, user)
	if err != nil {
		return nil, core.Money{}, err
	}
	list, err := t.r.VariableExpenses(ctx, user)
	if err != nil {
		return nil, core.Money{}, err
	}
	return insights.SpentPerMonth(cfg, list), cfg.Income, nil
}

// Message renders err for display.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrNoSession):
		return "User email not found. Please log in again."
	case errors.Is(err, records.ErrSetupIncomplete):
		return "Please complete your setup first."
	default:
		return err.Error()
	}
}
