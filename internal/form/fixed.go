package form

import (
	"fmt"
	"strings"

	"finplan/internal/core"
)

// FixedRow is one fixed expense line as typed.
type FixedRow struct {
	Category string
	Amount   string
}

// FixedConfigForm is the setup/settings input state. It always holds at least one row.
type FixedConfigForm struct {
	Income     string
	BudgetGoal string
	Rows       []FixedRow
}

func NewFixedConfigForm() FixedConfigForm {
	return FixedConfigForm{Rows: []FixedRow{{}}}
}

// FixedConfigFormFrom fills the form from a saved config.
func FixedConfigFormFrom(cfg core.FixedExpenseConfig) FixedConfigForm {
	f := FixedConfigForm{Income: cfg.Income.String(), BudgetGoal: cfg.BudgetGoal.String()}
	for _, e := range cfg.Expenses {
		f.Rows = append(f.Rows, FixedRow{Category: e.Category, Amount: e.Amount.String()})
	}
	if len(f.Rows) == 0 {
		f.Rows = []FixedRow{{}}
	}
	return f
}

// FixedAction is one update to a FixedConfigForm.
type FixedAction interface {
	applyFixed(FixedConfigForm) FixedConfigForm
}

type (
	SetIncome      string
	SetBudgetGoal  string
	AddRow         struct{}
	RemoveRow      int
	SetRowCategory struct {
		Index int
		Value string
	}
	SetRowAmount struct {
		Index int
		Value string
	}
)

func (a SetIncome) applyFixed(f FixedConfigForm) FixedConfigForm     { f.Income = string(a); return f }
func (a SetBudgetGoal) applyFixed(f FixedConfigForm) FixedConfigForm { f.BudgetGoal = string(a); return f }

func (AddRow) applyFixed(f FixedConfigForm) FixedConfigForm {
	f.Rows = append(f.cloneRows(), FixedRow{})
	return f
}

func (a RemoveRow) applyFixed(f FixedConfigForm) FixedConfigForm {
	i := int(a)
	if len(f.Rows) <= 1 || i < 0 || i >= len(f.Rows) {
		return f
	}
	rows := f.cloneRows()
	f.Rows = append(rows[:i], rows[i+1:]...)
	return f
}

func (a SetRowCategory) applyFixed(f FixedConfigForm) FixedConfigForm {
	if a.Index < 0 || a.Index >= len(f.Rows) {
		return f
	}
	f.Rows = f.cloneRows()
	f.Rows[a.Index].Category = a.Value
	return f
}

func (a SetRowAmount) applyFixed(f FixedConfigForm) FixedConfigForm {
	if a.Index < 0 || a.Index >= len(f.Rows) {
		return f
	}
	f.Rows = f.cloneRows()
	f.Rows[a.Index].Amount = a.Value
	return f
}

func (f FixedConfigForm) cloneRows() []FixedRow {
	return append([]FixedRow(nil), f.Rows...)
}

// Apply returns the form with a applied; f and its rows are unchanged.
func (f FixedConfigForm) Apply(a FixedAction) FixedConfigForm {
	if a == nil {
		return f
	}
	return a.applyFixed(f)
}

// Validate requires income, budget goal and every row's category and amount.
// Row fields are keyed "expenses[i].category" and "expenses[i].amount".
func (f FixedConfigForm) Validate() (core.FixedExpenseConfig, error) {
	errs := fieldErrors{}
	var cfg core.FixedExpenseConfig

	if m, err := parseAmount(f.Income); err != nil {
		errs["income"] = amountMessage(f.Income, err)
	} else {
		cfg.Income = m
	}
	if m, err := parseAmount(f.BudgetGoal); err != nil {
		errs["budgetGoal"] = amountMessage(f.BudgetGoal, err)
	} else {
		cfg.BudgetGoal = m
	}

	for i, r := range f.Rows {
		category := strings.TrimSpace(r.Category)
		if category == "" {
			errs[fmt.Sprintf("expenses[%d].category", i)] = "required"
		}
		amount, err := parseAmount(r.Amount)
		if err != nil {
			errs[fmt.Sprintf("expenses[%d].amount", i)] = amountMessage(r.Amount, err)
		}
		cfg.Expenses = append(cfg.Expenses, core.FixedExpense{Category: category, Amount: amount})
	}

	if err := errs.err(); err != nil {
		return core.FixedExpenseConfig{}, err
	}
	return cfg, nil
}
