package pages

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"finplan/internal/core"
	"finplan/internal/form"
	"finplan/internal/records"
	"finplan/internal/session"
)

// RecentLimit is how many expenses the tracker shows in its recent list.
const RecentLimit = 10

// TrackerStore is what the expense tracker needs from a record store.
type TrackerStore interface {
	records.ExpenseLister
	records.ExpenseWriter
	records.ExpenseDeleter
}

type TrackerState struct {
	Status   Status
	Expenses []core.VariableExpense
	Form     form.ExpenseForm
	// FormErr holds per-field problems of the last submission.
	FormErr *form.ValidationError
	Err     error
	Busy    bool
}

type TrackerPage struct {
	store TrackerStore
	user  session.Identity

	mu    sync.Mutex
	state TrackerState
}

func NewTrackerPage(store TrackerStore, user session.Identity) *TrackerPage {
	return &TrackerPage{store: store, user: user, state: TrackerState{Form: form.NewExpenseForm()}}
}

// Load replaces the list with a fresh fetch. On the first load a failure
// leaves the list empty; later failures keep what was shown.
func (p *TrackerPage) Load(ctx context.Context) error {
	list, err := p.store.VariableExpenses(ctx, p.user)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyList(ctx, list, err)
	return err
}

func (p *TrackerPage) applyList(ctx context.Context, list []core.VariableExpense, err error) {
	if err != nil {
		slog.WarnContext(ctx, "Expense list load failed", "error", err)
		p.state.Err = err
		if p.state.Status != StatusReady {
			p.state.Status = StatusFailed
			p.state.Expenses = nil
		}
		return
	}
	p.state.Status = StatusReady
	p.state.Expenses = list
	p.state.Err = nil
}

// Dispatch applies a form action.
func (p *TrackerPage) Dispatch(a form.ExpenseAction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Form = p.state.Form.Apply(a)
}

// Submit validates the form, stores the expense and re-fetches the list.
// Invalid input never reaches the store. The form is reset only on success.
func (p *TrackerPage) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Busy {
		p.mu.Unlock()
		return ErrBusy
	}
	e, err := p.state.Form.Validate()
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			p.state.FormErr = ve
		}
		p.mu.Unlock()
		return err
	}
	p.state.FormErr = nil
	p.state.Busy = true
	p.mu.Unlock()

	created, err := p.store.AddVariableExpense(ctx, p.user, e)
	if err == nil {
		slog.InfoContext(ctx, "Expense added", "id", created.ID, "month", created.Month)
	}
	return p.finishMutation(ctx, err, true)
}

// Delete removes the expense with id and re-fetches the list.
func (p *TrackerPage) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	if p.state.Busy {
		p.mu.Unlock()
		return ErrBusy
	}
	p.state.Busy = true
	p.mu.Unlock()

	err := p.store.DeleteVariableExpense(ctx, p.user, id)
	return p.finishMutation(ctx, err, false)
}

func (p *TrackerPage) finishMutation(ctx context.Context, err error, resetForm bool) error {
	var (
		list    []core.VariableExpense
		listErr error
	)
	if err == nil {
		list, listErr = p.store.VariableExpenses(ctx, p.user)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Busy = false
	if err != nil {
		slog.WarnContext(ctx, "Expense mutation failed", "error", err)
		p.state.Err = err
		return err
	}
	if resetForm {
		p.state.Form = p.state.Form.Apply(form.Reset{})
	}
	p.applyList(ctx, list, listErr)
	return listErr
}

func (p *TrackerPage) State() TrackerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.Expenses = append([]core.VariableExpense(nil), p.state.Expenses...)
	return st
}

// Total sums every loaded expense.
func (p *TrackerPage) Total() core.Money {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total core.Money
	for _, e := range p.state.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Recent returns up to n expenses, latest calendar month first. Expenses in
// the same month keep their list order.
func (p *TrackerPage) Recent(n int) []core.VariableExpense {
	p.mu.Lock()
	out := append([]core.VariableExpense(nil), p.state.Expenses...)
	p.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Month.Index() > out[j].Month.Index()
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
