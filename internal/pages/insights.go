package pages

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/records"
	"finplan/internal/session"
)

// Request identifies one load of the insights page. Seq grows with every
// Select, and only the result of the latest request is applied.
type Request struct {
	Seq   uint64
	Month core.Month
}

type InsightsState struct {
	Status   Status
	Month    core.Month
	Loading  bool
	Snapshot *insights.Snapshot
	Err      error
}

type InsightsPage struct {
	store Reader
	user  session.Identity

	mu    sync.Mutex
	seq   uint64
	state InsightsState
}

func NewInsightsPage(store Reader, user session.Identity) *InsightsPage {
	return &InsightsPage{store: store, user: user, state: InsightsState{Month: core.March}}
}

// Select records month as the current selection and returns the request
// that should be loaded for it. Any request issued earlier becomes stale.
func (p *InsightsPage) Select(month core.Month) Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.state.Month = month
	p.state.Loading = true
	if p.state.Status == StatusIdle {
		p.state.Status = StatusLoading
	}
	return Request{Seq: p.seq, Month: month}
}

// Load fetches the fixed config and the expenses concurrently and builds the
// snapshot only once both succeeded. It reports whether the result was
// applied; a stale request changes nothing.
func (p *InsightsPage) Load(ctx context.Context, req Request) bool {
	var (
		cfg  core.FixedExpenseConfig
		list []core.VariableExpense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = p.store.FixedConfig(gctx, p.user)
		return err
	})
	g.Go(func() error {
		var err error
		list, err = p.store.VariableExpenses(gctx, p.user)
		return err
	})
	err := g.Wait()

	var snap insights.Snapshot
	if err == nil {
		snap = insights.Build(cfg, list, req.Month)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if req.Seq != p.seq {
		slog.DebugContext(ctx, "Discarding stale insights response", "seq", req.Seq, "latest", p.seq)
		return false
	}
	p.state.Loading = false

	switch {
	case err == nil:
		p.state.Status = StatusReady
		p.state.Snapshot = &snap
		p.state.Err = nil
	case errors.Is(err, records.ErrSetupIncomplete):
		p.state.Status = StatusSetupIncomplete
		p.state.Snapshot = nil
		p.state.Err = nil
	default:
		slog.WarnContext(ctx, "Insights load failed", "month", req.Month, "error", err)
		p.state.Err = err
		if p.state.Snapshot == nil {
			p.state.Status = StatusFailed
		}
	}
	return true
}

// Refresh selects month and loads it synchronously.
func (p *InsightsPage) Refresh(ctx context.Context, month core.Month) InsightsState {
	p.Load(ctx, p.Select(month))
	return p.State()
}

func (p *InsightsPage) State() InsightsState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
