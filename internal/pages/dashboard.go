package pages

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"finplan/internal/insights"
	"finplan/internal/records"
	"finplan/internal/session"
)

type DashboardState struct {
	Status   Status
	Statuses []insights.MonthStatus
	Err      error
}

// DashboardPage shows spending against income for all twelve months.
type DashboardPage struct {
	source MonthlyTotals
	user   session.Identity

	mu    sync.Mutex
	state DashboardState
}

func NewDashboardPage(source MonthlyTotals, user session.Identity) *DashboardPage {
	return &DashboardPage{source: source, user: user}
}

func (p *DashboardPage) Load(ctx context.Context) error {
	spent, income, err := p.source.MonthlyExpenses(ctx, p.user)

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err == nil:
		p.state = DashboardState{Status: StatusReady, Statuses: insights.StatusFromTotals(income, spent)}
	case errors.Is(err, records.ErrSetupIncomplete):
		p.state = DashboardState{Status: StatusSetupIncomplete}
	default:
		slog.WarnContext(ctx, "Dashboard load failed", "error", err)
		p.state.Err = err
		if p.state.Status != StatusReady {
			p.state.Status = StatusFailed
			p.state.Statuses = nil
		}
	}
	return err
}

func (p *DashboardPage) State() DashboardState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.Statuses = append([]insights.MonthStatus(nil), p.state.Statuses...)
	return st
}
