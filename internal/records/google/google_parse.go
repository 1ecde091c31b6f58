package google

import (
	"fmt"
	"strings"

	"finplan/internal/core"
	"finplan/internal/session"
)

// Expense rows: ID | Email | Description | Amount | Category | Month
func rowForExpense(user session.Identity, e core.VariableExpense) []interface{} {
	return []interface{}{e.ID, string(user), e.Description, e.Amount.String(), string(e.Category), string(e.Month)}
}

func expenseFromRow(r []string) (core.VariableExpense, error) {
	id := strings.TrimSpace(safeGet(r, 0))
	if id == "" {
		return core.VariableExpense{}, fmt.Errorf("missing id")
	}
	amount, err := core.ParseMoney(safeGet(r, 3))
	if err != nil {
		return core.VariableExpense{}, fmt.Errorf("amount %q: %w", safeGet(r, 3), err)
	}
	cat, err := core.ParseCategory(safeGet(r, 4))
	if err != nil {
		return core.VariableExpense{}, err
	}
	month, err := core.ParseMonth(safeGet(r, 5))
	if err != nil {
		return core.VariableExpense{}, err
	}
	return core.VariableExpense{
		ID:          id,
		Description: safeGet(r, 2),
		Amount:      amount,
		Category:    cat,
		Month:       month,
	}, nil
}

// Config rows: Email | Income | BudgetGoal | Category | Amount
// A config without fixed expenses is a single row with empty Category and Amount.
func rowsForConfig(user session.Identity, cfg core.FixedExpenseConfig) [][]interface{} {
	if len(cfg.Expenses) == 0 {
		return [][]interface{}{{string(user), cfg.Income.String(), cfg.BudgetGoal.String(), "", ""}}
	}
	out := make([][]interface{}, 0, len(cfg.Expenses))
	for _, fe := range cfg.Expenses {
		out = append(out, []interface{}{string(user), cfg.Income.String(), cfg.BudgetGoal.String(), fe.Category, fe.Amount.String()})
	}
	return out
}

// configFromRows collects the user's rows; ok is false when there are none.
// Rows that fail to parse are ignored.
func configFromRows(rows [][]string, user session.Identity) (core.FixedExpenseConfig, bool) {
	var (
		cfg   core.FixedExpenseConfig
		found bool
	)
	for _, r := range rows {
		if !strings.EqualFold(safeGet(r, 0), string(user)) {
			continue
		}
		if !found {
			income, err1 := core.ParseMoney(safeGet(r, 1))
			goal, err2 := core.ParseMoney(safeGet(r, 2))
			if err1 != nil || err2 != nil {
				continue
			}
			cfg.Income, cfg.BudgetGoal = income, goal
			found = true
		}
		category := strings.TrimSpace(safeGet(r, 3))
		if category == "" {
			continue
		}
		amount, err := core.ParseMoney(safeGet(r, 4))
		if err != nil {
			continue
		}
		cfg.Expenses = append(cfg.Expenses, core.FixedExpense{Category: category, Amount: amount})
	}
	return cfg, found
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
