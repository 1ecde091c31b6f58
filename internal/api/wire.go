// Package api holds the JSON shapes exchanged with the finance API, shared by
// the HTTP server and the remote records client.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"finplan/internal/core"
	"finplan/internal/insights"
)

// ErrMissingField marks a required amount absent from a request body.
var ErrMissingField = errors.New("required field missing")

// Dollars returns a pointer to v for the optional amount fields.
func Dollars(v float64) *float64 { return &v }

func moneyField(name string, v *float64) (core.Money, error) {
	if v == nil {
		return core.Money{}, fmt.Errorf("%s: %w", name, ErrMissingField)
	}
	m, err := core.MoneyFromFloat(*v)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// ID accepts both JSON strings and numbers; remote servers emit either.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expenseId: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type FixedExpense struct {
	Category string   `json:"category"`
	Amount   *float64 `json:"amount"`
}

type FixedConfig struct {
	Income     *float64       `json:"income"`
	BudgetGoal *float64       `json:"budgetGoal"`
	Expenses   []FixedExpense `json:"expenses"`
}

type SaveFixedConfigRequest struct {
	Email string `json:"email"`
	FixedConfig
}

type FixedConfigResponse struct {
	Data *FixedConfig `json:"data"`
}

type Expense struct {
	ExpenseID   ID       `json:"expenseId"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Month       string   `json:"month"`
}

type AddExpenseRequest struct {
	Email       string   `json:"email"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Month       string   `json:"month"`
}

type ExpenseListResponse struct {
	Expenses []Expense `json:"expenses"`
}

// AddExpenseResponse carries the user's expenses with the created one last.
type AddExpenseResponse struct {
	Data struct {
		Expenses []Expense `json:"expenses"`
	} `json:"data"`
}

type MonthlyExpensesResponse struct {
	MonthlyExpenses map[string]float64 `json:"monthlyExpenses"`
	FixedIncome     float64            `json:"fixedIncome"`
}

type AdviceResponse struct {
	Response string `json:"response"`
}

type SessionResponse struct {
	Email string `json:"email"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func FromConfig(cfg core.FixedExpenseConfig) FixedConfig {
	out := FixedConfig{
		Income:     Dollars(cfg.Income.Dollars()),
		BudgetGoal: Dollars(cfg.BudgetGoal.Dollars()),
		Expenses:   make([]FixedExpense, 0, len(cfg.Expenses)),
	}
	for _, fe := range cfg.Expenses {
		out.Expenses = append(out.Expenses, FixedExpense{Category: fe.Category, Amount: Dollars(fe.Amount.Dollars())})
	}
	return out
}

// ToConfig converts and validates the wire shape.
func (f FixedConfig) ToConfig() (core.FixedExpenseConfig, error) {
	income, err := moneyField("income", f.Income)
	if err != nil {
		return core.FixedExpenseConfig{}, err
	}
	goal, err := moneyField("budgetGoal", f.BudgetGoal)
	if err != nil {
		return core.FixedExpenseConfig{}, err
	}
	cfg := core.FixedExpenseConfig{Income: income, BudgetGoal: goal}
	for i, fe := range f.Expenses {
		amount, err := moneyField(fmt.Sprintf("expenses[%d].amount", i), fe.Amount)
		if err != nil {
			return core.FixedExpenseConfig{}, err
		}
		cfg.Expenses = append(cfg.Expenses, core.FixedExpense{Category: fe.Category, Amount: amount})
	}
	return cfg, cfg.Validate()
}

func FromExpense(e core.VariableExpense) Expense {
	return Expense{
		ExpenseID:   ID(e.ID),
		Description: e.Description,
		Amount:      Dollars(e.Amount.Dollars()),
		Category:    string(e.Category),
		Month:       string(e.Month),
	}
}

func FromExpenses(in []core.VariableExpense) []Expense {
	out := make([]Expense, 0, len(in))
	for _, e := range in {
		out = append(out, FromExpense(e))
	}
	return out
}

// ToExpense normalises category and month and validates the record.
func (e Expense) ToExpense() (core.VariableExpense, error) {
	return toExpense(string(e.ExpenseID), e.Description, e.Amount, e.Category, e.Month)
}

// ToExpense builds an unsaved record from the request; ID is left empty.
func (r AddExpenseRequest) ToExpense() (core.VariableExpense, error) {
	return toExpense("", r.Description, r.Amount, r.Category, r.Month)
}

func toExpense(id, description string, amount *float64, category, month string) (core.VariableExpense, error) {
	m, err := moneyField("amount", amount)
	if err != nil {
		return core.VariableExpense{}, err
	}
	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.VariableExpense{}, err
	}
	mon, err := core.ParseMonth(month)
	if err != nil {
		return core.VariableExpense{}, err
	}
	e := core.VariableExpense{ID: id, Description: description, Amount: m, Category: cat, Month: mon}
	return e, e.Validate()
}

// MonthlyTotals renders spent-per-month keyed by month name; months without
// spending are omitted.
func MonthlyTotals(spent map[core.Month]core.Money) map[string]float64 {
	out := make(map[string]float64, len(spent))
	for m, v := range spent {
		if v.Cents == 0 {
			continue
		}
		out[string(m)] = v.Dollars()
	}
	return out
}

// ParseMonthlyTotals is the inverse of MonthlyTotals; unknown month keys are an error.
func ParseMonthlyTotals(in map[string]float64) (map[core.Month]core.Money, error) {
	out := make(map[core.Month]core.Money, len(in))
	for k, v := range in {
		m, err := core.ParseMonth(k)
		if err != nil {
			return nil, err
		}
		money, err := core.MoneyFromFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[m] = money
	}
	return out, nil
}

type Slice struct {
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	Percent      int64   `json:"percent"`
	PercentLabel string  `json:"percentLabel"`
	Color        string  `json:"color"`
}

type SavingsPoint struct {
	Month   string  `json:"month"`
	Savings float64 `json:"savings"`
}

type MonthStatus struct {
	Month      string  `json:"month"`
	Spent      float64 `json:"spent"`
	Income     float64 `json:"income"`
	Percent    int64   `json:"percent"`
	OverBudget bool    `json:"overBudget"`
	HasData    bool    `json:"hasData"`
}

// InsightsResponse is the rendered insights page for one month.
type InsightsResponse struct {
	Month      string         `json:"month"`
	Income     float64        `json:"income"`
	FixedTotal float64        `json:"fixedTotal"`
	BudgetGoal float64        `json:"budgetGoal"`
	Breakdown  []Slice        `json:"breakdown"`
	Trend      []SavingsPoint `json:"trend"`
	Statuses   []MonthStatus  `json:"statuses"`
}

func FromSnapshot(s insights.Snapshot) InsightsResponse {
	out := InsightsResponse{
		Month:      string(s.Month),
		Income:     s.Income.Dollars(),
		FixedTotal: s.FixedTotal.Dollars(),
		BudgetGoal: s.BudgetGoal.Dollars(),
		Breakdown:  make([]Slice, 0, len(s.Slices)),
		Trend:      make([]SavingsPoint, 0, len(s.Trend)),
		Statuses:   make([]MonthStatus, 0, len(s.Statuses)),
	}
	for _, sl := range s.Slices {
		out.Breakdown = append(out.Breakdown, Slice{
			Label:        sl.Label,
			Value:        sl.Value.Dollars(),
			Percent:      sl.Percent,
			PercentLabel: sl.PercentLabel,
			Color:        sl.Color,
		})
	}
	for _, t := range s.Trend {
		out.Trend = append(out.Trend, SavingsPoint{Month: string(t.Month), Savings: t.Savings.Dollars()})
	}
	for _, st := range s.Statuses {
		out.Statuses = append(out.Statuses, MonthStatus{
			Month:      string(st.Month),
			Spent:      st.Spent.Dollars(),
			Income:     st.Income.Dollars(),
			Percent:    st.Percent,
			OverBudget: st.OverBudget,
			HasData:    st.HasData,
		})
	}
	return out
}
