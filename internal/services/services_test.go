package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/genai"

	"finplan/internal/amqp"
	"finplan/internal/cache"
	"finplan/internal/core"
	"finplan/internal/insights"
	"finplan/internal/records"
	"finplan/internal/records/memory"
	"finplan/internal/session"
)

const user = session.Identity("ada@example.com")

type recordingPublisher struct {
	events []*amqp.RecordEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.RecordEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

type countingStore struct {
	*memory.Store
	reads atomic.Int32
}

func (s *countingStore) VariableExpenses(ctx context.Context, u session.Identity) ([]core.VariableExpense, error) {
	s.reads.Add(1)
	return s.Store.VariableExpenses(ctx, u)
}

func newService(t *testing.T, pub Publisher) (*FinanceService, *countingStore, *SnapshotCache) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	snaps := NewSnapshotCache(cache.NewLRUCache[insights.Snapshot](100, time.Minute))
	svc := NewFinanceService(store, pub, snaps)
	cfg := core.FixedExpenseConfig{
		Income:     core.Money{Cents: 300000},
		BudgetGoal: core.Money{Cents: 50000},
		Expenses:   []core.FixedExpense{{Category: "Rent", Amount: core.Money{Cents: 100000}}},
	}
	if err := store.SaveFixedConfig(context.Background(), user, cfg); err != nil {
		t.Fatal(err)
	}
	return svc, store, snaps
}

func TestSnapshotIsCachedAndInvalidatedOnWrite(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store, snaps := newService(t, pub)
	ctx := context.Background()

	if _, err := svc.Snapshot(ctx, user, core.March); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, err := svc.Snapshot(ctx, user, core.March); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if n := store.reads.Load(); n != 1 {
		t.Fatalf("expected one store read, got %d", n)
	}

	e := core.VariableExpense{Description: "dinner", Amount: core.Money{Cents: 20000}, Category: core.Dining, Month: core.March}
	created, err := svc.AddVariableExpense(ctx, user, e)
	if err != nil {
		t.Fatalf("AddVariableExpense: %v", err)
	}
	if snaps.Size() != 0 {
		t.Fatalf("cache should be empty after a write, has %d", snaps.Size())
	}
	snap, err := svc.Snapshot(ctx, user, core.March)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := snap.Trend[core.March.Index()].Savings.Cents; got != 180000 {
		t.Fatalf("March savings = %d", got)
	}

	if len(pub.events) != 1 || pub.events[0].Type != amqp.ExpenseAdded || pub.events[0].ExpenseID != created.ID || pub.events[0].Month != "March" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _, _ := newService(t, pub)
	ctx := context.Background()

	e := core.VariableExpense{Description: "bus", Amount: core.Money{Cents: 250}, Category: core.Travel, Month: core.May}
	created, err := svc.AddVariableExpense(ctx, user, e)
	if err != nil {
		t.Fatalf("write should succeed, got %v", err)
	}
	if err := svc.DeleteVariableExpense(ctx, user, created.ID); err != nil {
		t.Fatalf("delete should succeed, got %v", err)
	}
	if len(pub.events) != 2 || pub.events[1].Type != amqp.ExpenseDeleted {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestFinanceServiceErrors(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	if _, err := svc.AddVariableExpense(ctx, user, core.VariableExpense{}); !errors.Is(err, records.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.SaveFixedConfig(ctx, user, core.FixedExpenseConfig{Income: core.Money{Cents: -1}}); !errors.Is(err, records.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.DeleteVariableExpense(ctx, user, "nope"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Snapshot(ctx, "bob@example.com", core.March); !errors.Is(err, records.ErrSetupIncomplete) {
		t.Fatalf("expected ErrSetupIncomplete, got %v", err)
	}
	if _, err := svc.Snapshot(ctx, user, core.Month("Smarch")); !errors.Is(err, records.ErrValidation) {
		t.Fatalf("expected validation error for unknown month, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestMonthlyExpenses(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()
	e := core.VariableExpense{Description: "dinner", Amount: core.Money{Cents: 20000}, Category: core.Dining, Month: core.March}
	if _, err := svc.AddVariableExpense(ctx, user, e); err != nil {
		t.Fatal(err)
	}
	spent, income, err := svc.MonthlyExpenses(ctx, user)
	if err != nil {
		t.Fatalf("MonthlyExpenses: %v", err)
	}
	if income.Cents != 300000 || spent[core.March].Cents != 120000 || spent[core.April].Cents != 100000 {
		t.Fatalf("spent=%v income=%v", spent, income)
	}
}

func TestSnapshotCacheNilSafe(t *testing.T) {
	var c *SnapshotCache
	c.Put(user, core.March, insights.Snapshot{})
	c.Invalidate(user)
	if _, ok := c.Get(user, core.March); ok || c.Size() != 0 {
		t.Fatal("nil cache must always miss")
	}
}

type fakeModels struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.prompt = contents[0].Parts[0].Text
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText(f.reply, genai.RoleModel),
	}}}, nil
}

func TestAdvisor(t *testing.T) {
	cfg := core.FixedExpenseConfig{
		Income:     core.Money{Cents: 300000},
		BudgetGoal: core.Money{Cents: 50000},
		Expenses:   []core.FixedExpense{{Category: "Rent", Amount: core.Money{Cents: 100000}}},
	}
	list := []core.VariableExpense{{Month: core.March, Category: core.Dining, Amount: core.Money{Cents: 20000}}}
	snap := insights.Build(cfg, list, core.March)

	models := &fakeModels{reply: "  Cook at home.  "}
	got, err := NewAdvisorWith(models, "").Advise(context.Background(), snap)
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if got != "Cook at home." {
		t.Fatalf("advice = %q", got)
	}
	for _, want := range []string{"$3,000.00", "$1,000.00", "Dining: $200.00", "March", "$500.00"} {
		if !strings.Contains(models.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, models.prompt)
		}
	}

	if _, err := NewAdvisorWith(&fakeModels{reply: ""}, "m").Advise(context.Background(), snap); err == nil {
		t.Error("empty reply should be an error")
	}
}

func TestAdvisorDisabledWithoutKey(t *testing.T) {
	a, err := NewAdvisor(context.Background(), "", "")
	if err != nil {
		t.Fatalf("NewAdvisor: %v", err)
	}
	if a.Enabled() {
		t.Fatal("advisor without key must be disabled")
	}
	if _, err := a.Advise(context.Background(), insights.Snapshot{}); !errors.Is(err, ErrAdvisorDisabled) {
		t.Fatalf("expected ErrAdvisorDisabled, got %v", err)
	}
}
