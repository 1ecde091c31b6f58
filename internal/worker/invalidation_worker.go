package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"finplan/internal/amqp"
	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/session"
)

// Invalidator drops cached snapshots of a user.
type Invalidator interface {
	Invalidate(user session.Identity)
}

// Warmer rebuilds (and caches) a snapshot.
type Warmer interface {
	Snapshot(ctx context.Context, user session.Identity, month core.Month) (insights.Snapshot, error)
}

// InvalidationWorker keeps the shared snapshot cache in step with record
// events published by any API instance.
type InvalidationWorker struct {
	cache  Invalidator
	warmer Warmer

	processed atomic.Int64
	warmed    atomic.Int64
}

// NewInvalidationWorker builds a worker; warmer may be nil to skip warm-up.
func NewInvalidationWorker(cache Invalidator, warmer Warmer) *InvalidationWorker {
	return &InvalidationWorker{cache: cache, warmer: warmer}
}

// HandleEvent invalidates the user's snapshots and, for expense events that
// name a month, rebuilds that month so the next page view is a hit.
func (w *InvalidationWorker) HandleEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	user, err := session.Parse(ev.User)
	if err != nil {
		// Unparseable users can never be served; acknowledge and move on.
		slog.WarnContext(ctx, "Dropping event with invalid user", "type", ev.Type, "error", err)
		return nil
	}

	w.cache.Invalidate(user)
	w.processed.Add(1)
	slog.InfoContext(ctx, "Snapshots invalidated", "type", ev.Type, "user", string(user))

	if w.warmer == nil || ev.Month == "" {
		return nil
	}
	month, err := core.ParseMonth(ev.Month)
	if err != nil {
		slog.WarnContext(ctx, "Event carries unknown month, skipping warm-up", "month", ev.Month)
		return nil
	}
	if _, err := w.warmer.Snapshot(ctx, user, month); err != nil {
		return fmt.Errorf("warm snapshot %s/%s: %w", user, month, err)
	}
	w.warmed.Add(1)
	return nil
}

// Stats returns how many events were handled and how many snapshots were rebuilt.
func (w *InvalidationWorker) Stats() (processed, warmed int64) {
	return w.processed.Load(), w.warmed.Load()
}
