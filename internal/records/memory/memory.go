package memory

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/session"
)

var _ records.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	configs  map[session.Identity]core.FixedExpenseConfig
	expenses map[session.Identity][]core.VariableExpense
	newID    func() string
}

func New() *Store {
	return &Store{
		configs:  map[session.Identity]core.FixedExpenseConfig{},
		expenses: map[session.Identity][]core.VariableExpense{},
		newID:    uuid.NewString,
	}
}

// NewFromFiles seeds variable expenses from base/seed_expenses.csv when present.
// Each line is "email,month,category,amount,description"; blank lines and
// lines starting with # are skipped, as are lines that fail validation.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_expenses.csv")) {
		parts := strings.SplitN(line, ",", 5)
		if len(parts) != 5 {
			continue
		}
		user, err := session.Parse(parts[0])
		if err != nil {
			continue
		}
		e, err := parseSeed(parts[1:])
		if err != nil {
			slog.Warn("Skipping seed expense", "line", line, "error", err)
			continue
		}
		e.ID = s.newID()
		s.expenses[user] = append(s.expenses[user], e)
	}
	return s
}

func parseSeed(parts []string) (core.VariableExpense, error) {
	month, err := core.ParseMonth(parts[0])
	if err != nil {
		return core.VariableExpense{}, err
	}
	cat, err := core.ParseCategory(parts[1])
	if err != nil {
		return core.VariableExpense{}, err
	}
	amount, err := core.ParseMoney(parts[2])
	if err != nil {
		return core.VariableExpense{}, err
	}
	e := core.VariableExpense{Description: strings.TrimSpace(parts[3]), Amount: amount, Category: cat, Month: month}
	return e, e.Validate()
}

func (s *Store) FixedConfig(_ context.Context, user session.Identity) (core.FixedExpenseConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[user]
	if !ok {
		return core.FixedExpenseConfig{}, records.ErrSetupIncomplete
	}
	cfg.Expenses = append([]core.FixedExpense(nil), cfg.Expenses...)
	return cfg, nil
}

func (s *Store) SaveFixedConfig(_ context.Context, user session.Identity, cfg core.FixedExpenseConfig) error {
	if err := cfg.Validate(); err != nil {
		return records.Invalid(err)
	}
	cfg.Expenses = append([]core.FixedExpense(nil), cfg.Expenses...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[user] = cfg
	return nil
}

// VariableExpenses returns a copy of the user's records in insertion order.
func (s *Store) VariableExpenses(_ context.Context, user session.Identity) ([]core.VariableExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.VariableExpense{}, s.expenses[user]...), nil
}

// AddVariableExpense stores the expense under a fresh UUID.
func (s *Store) AddVariableExpense(_ context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error) {
	if err := e.Validate(); err != nil {
		return core.VariableExpense{}, records.Invalid(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.newID()
	s.expenses[user] = append(s.expenses[user], e)
	return e, nil
}

func (s *Store) DeleteVariableExpense(_ context.Context, user session.Identity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.expenses[user]
	for i, e := range items {
		if e.ID == id {
			s.expenses[user] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return records.ErrNotFound
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
