package form

import (
	"strings"

	"finplan/internal/core"
)

// ExpenseForm is the add-expense input state. Amount stays as typed until Validate.
type ExpenseForm struct {
	Description string
	Amount      string
	Category    string
	Month       core.Month
}

func NewExpenseForm() ExpenseForm {
	return ExpenseForm{Month: DefaultMonth}
}

// ExpenseAction is one update to an ExpenseForm.
type ExpenseAction interface {
	applyExpense(ExpenseForm) ExpenseForm
}

type (
	SetDescription string
	SetAmount      string
	SetCategory    string
	SetMonth       core.Month
	Reset          struct{}
)

func (a SetDescription) applyExpense(f ExpenseForm) ExpenseForm { f.Description = string(a); return f }
func (a SetAmount) applyExpense(f ExpenseForm) ExpenseForm      { f.Amount = string(a); return f }
func (a SetCategory) applyExpense(f ExpenseForm) ExpenseForm    { f.Category = string(a); return f }
func (a SetMonth) applyExpense(f ExpenseForm) ExpenseForm       { f.Month = core.Month(a); return f }
func (Reset) applyExpense(ExpenseForm) ExpenseForm              { return NewExpenseForm() }

// Apply returns the form with a applied; f is unchanged.
func (f ExpenseForm) Apply(a ExpenseAction) ExpenseForm {
	if a == nil {
		return f
	}
	return a.applyExpense(f)
}

// Validate checks every field and returns the record to submit, or a
// *ValidationError listing each problem.
func (f ExpenseForm) Validate() (core.VariableExpense, error) {
	errs := fieldErrors{}
	e := core.VariableExpense{Description: strings.TrimSpace(f.Description)}

	switch {
	case e.Description == "":
		errs["description"] = "required"
	case len(e.Description) > core.MaxDescriptionLength:
		errs["description"] = core.ErrLongDescription.Error()
	}

	if amount, err := parseAmount(f.Amount); err != nil {
		errs["amount"] = amountMessage(f.Amount, err)
	} else {
		e.Amount = amount
	}

	if strings.TrimSpace(f.Category) == "" {
		errs["category"] = "required"
	} else if c, err := core.ParseCategory(f.Category); err != nil {
		errs["category"] = err.Error()
	} else {
		e.Category = c
	}

	if m, err := core.ParseMonth(string(f.Month)); err != nil {
		errs["month"] = "required"
	} else {
		e.Month = m
	}

	if err := errs.err(); err != nil {
		return core.VariableExpense{}, err
	}
	return e, nil
}
