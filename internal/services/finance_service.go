package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"finplan/internal/amqp"
	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/records"
	"finplan/internal/session"
)

// Publisher announces record changes to other processes.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.RecordEvent) error
}

// Ensure interface conformance
var _ records.Store = (*FinanceService)(nil)

// FinanceService wraps a record store: it validates input, keeps the
// snapshot cache consistent with every mutation and publishes events.
type FinanceService struct {
	store     records.Store
	publisher Publisher
	snapshots *SnapshotCache
}

// NewFinanceService wires store with an optional publisher and cache (either may be nil).
func NewFinanceService(store records.Store, publisher Publisher, snapshots *SnapshotCache) *FinanceService {
	return &FinanceService{store: store, publisher: publisher, snapshots: snapshots}
}

func (s *FinanceService) FixedConfig(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, error) {
	return s.store.FixedConfig(ctx, user)
}

func (s *FinanceService) SaveFixedConfig(ctx context.Context, user session.Identity, cfg core.FixedExpenseConfig) error {
	if err := cfg.Validate(); err != nil {
		return records.Invalid(err)
	}
	if err := s.store.SaveFixedConfig(ctx, user, cfg); err != nil {
		return err
	}
	s.changed(ctx, user, amqp.NewRecordEvent(amqp.ConfigSaved, string(user)))
	slog.DebugContext(ctx, "Fixed configuration saved", "user", string(user), "expenses", len(cfg.Expenses))
	return nil
}

func (s *FinanceService) VariableExpenses(ctx context.Context, user session.Identity) ([]core.VariableExpense, error) {
	return s.store.VariableExpenses(ctx, user)
}

func (s *FinanceService) AddVariableExpense(ctx context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error) {
	if err := e.Validate(); err != nil {
		return core.VariableExpense{}, records.Invalid(err)
	}
	created, err := s.store.AddVariableExpense(ctx, user, e)
	if err != nil {
		return core.VariableExpense{}, err
	}
	ev := amqp.NewRecordEvent(amqp.ExpenseAdded, string(user))
	ev.ExpenseID, ev.Month = created.ID, string(created.Month)
	s.changed(ctx, user, ev)
	slog.DebugContext(ctx, "Expense added", "user", string(user), "id", created.ID, "month", created.Month)
	return created, nil
}

func (s *FinanceService) DeleteVariableExpense(ctx context.Context, user session.Identity, id string) error {
	if err := s.store.DeleteVariableExpense(ctx, user, id); err != nil {
		return err
	}
	ev := amqp.NewRecordEvent(amqp.ExpenseDeleted, string(user))
	ev.ExpenseID = id
	s.changed(ctx, user, ev)
	slog.DebugContext(ctx, "Expense deleted", "user", string(user), "id", id)
	return nil
}

// changed runs after a successful write. Publish failures are logged only:
// the write already happened.
func (s *FinanceService) changed(ctx context.Context, user session.Identity, ev *amqp.RecordEvent) {
	s.snapshots.Invalidate(user)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event", "type", ev.Type, "user", ev.User, "error", err)
	}
}

// Records fetches the fixed config and the expenses concurrently.
func (s *FinanceService) Records(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, []core.VariableExpense, error) {
	var (
		cfg  core.FixedExpenseConfig
		list []core.VariableExpense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = s.store.FixedConfig(gctx, user)
		return err
	})
	g.Go(func() error {
		var err error
		list, err = s.store.VariableExpenses(gctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.FixedExpenseConfig{}, nil, err
	}
	return cfg, list, nil
}

// Snapshot returns the insights for month, from cache when possible.
func (s *FinanceService) Snapshot(ctx context.Context, user session.Identity, month core.Month) (insights.Snapshot, error) {
	if err := month.Validate(); err != nil {
		return insights.Snapshot{}, records.Invalid(err)
	}
	if snap, ok := s.snapshots.Get(user, month); ok {
		slog.DebugContext(ctx, "Snapshot cache hit", "user", string(user), "month", month)
		return snap, nil
	}
	cfg, list, err := s.Records(ctx, user)
	if err != nil {
		return insights.Snapshot{}, err
	}
	snap := insights.Build(cfg, list, month)
	s.snapshots.Put(user, month, snap)
	return snap, nil
}

// MonthlyExpenses returns what each month spent, fixed total included, and the income.
func (s *FinanceService) MonthlyExpenses(ctx context.Context, user session.Identity) (map[core.Month]core.Money, core.Money, error) {
	cfg, list, err := s.Records(ctx, user)
	if err != nil {
		return nil, core.Money{}, err
	}
	return insights.SpentPerMonth(cfg, list), cfg.Income, nil
}

// Close releases the store and publisher when they hold resources.
func (s *FinanceService) Close() error {
	var errs []error
	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close finance service: %v", errs)
	}
	return nil
}
