// Package insights turns variable-expense records and the fixed setup into
// the figures the finance pages display: a per-category breakdown for one
// month, the twelve-month savings trend and the monthly budget status.
//
// Everything here is pure and synchronous. Inputs are assumed well formed;
// amounts are validated at the input boundary before they reach this package.
package insights

import (
	"finplan/internal/core"
)

// CategoryTotal is the variable spending of one category in one month.
type CategoryTotal struct {
	Category string
	Amount   core.Money
}

// MonthlySavings is the income left after fixed and variable spending,
// clamped at zero.
type MonthlySavings struct {
	Month   core.Month
	Savings core.Money
}

// MonthStatus is the unclamped spent-versus-income comparison for one month.
// It intentionally diverges from MonthlySavings: a month can have zero
// savings in the trend while being reported here as over budget.
type MonthStatus struct {
	Month      core.Month
	Spent      core.Money // fixed total plus the month's variable spending
	Income     core.Money
	Percent    int64 // spent/income*100 capped at 100, 0 when income is zero
	OverBudget bool
	HasData    bool
}

// CategoryBreakdown sums the records of month per category.
//
// Records are matched on an exact month string. Groups keep the order in
// which their category first appears, and labels are returned with the first
// letter upper-cased. The result is empty when no record matches.
func CategoryBreakdown(records []core.VariableExpense, month core.Month) []CategoryTotal {
	out := []CategoryTotal{}
	index := map[core.Category]int{}
	for _, r := range records {
		if r.Month != month {
			continue
		}
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryTotal{Category: core.DisplayLabel(string(r.Category))})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}
	return out
}

// MonthlySpending returns the variable total per month. Records with an
// unknown month are kept under their own key and never reach the trend.
func MonthlySpending(records []core.VariableExpense) map[core.Month]core.Money {
	totals := make(map[core.Month]core.Money, 12)
	for _, r := range records {
		totals[r.Month] = totals[r.Month].Add(r.Amount)
	}
	return totals
}

// SavingsTrend returns exactly twelve entries, January to December:
// income minus fixed total minus the month's variable spending, clamped at zero.
func SavingsTrend(cfg core.FixedExpenseConfig, records []core.VariableExpense) []MonthlySavings {
	fixed := cfg.Total()
	spending := MonthlySpending(records)
	out := make([]MonthlySavings, 0, 12)
	for _, m := range core.Months() {
		savings := cfg.Income.Sub(fixed.Add(spending[m]))
		if savings.Cents < 0 {
			savings = core.Money{}
		}
		out = append(out, MonthlySavings{Month: m, Savings: savings})
	}
	return out
}

// SpentPerMonth returns, for each of the twelve months, the fixed total plus
// that month's variable spending.
func SpentPerMonth(cfg core.FixedExpenseConfig, records []core.VariableExpense) map[core.Month]core.Money {
	fixed := cfg.Total()
	spending := MonthlySpending(records)
	out := make(map[core.Month]core.Money, 12)
	for _, m := range core.Months() {
		out[m] = fixed.Add(spending[m])
	}
	return out
}

// MonthStatuses compares each month's total spending with income, without clamping.
func MonthStatuses(cfg core.FixedExpenseConfig, records []core.VariableExpense) []MonthStatus {
	return StatusFromTotals(cfg.Income, SpentPerMonth(cfg, records))
}

// StatusFromTotals builds statuses from precomputed per-month spending,
// as returned by the monthly-expenses endpoint (fixed total already included).
func StatusFromTotals(income core.Money, spent map[core.Month]core.Money) []MonthStatus {
	out := make([]MonthStatus, 0, 12)
	for _, m := range core.Months() {
		out = append(out, statusFor(m, income, spent[m]))
	}
	return out
}

func statusFor(m core.Month, income, spent core.Money) MonthStatus {
	st := MonthStatus{
		Month:      m,
		Spent:      spent,
		Income:     income,
		OverBudget: spent.Cents > income.Cents,
		HasData:    spent.Cents > 0,
	}
	if income.Cents > 0 {
		st.Percent = percentOf(spent.Cents, income.Cents)
		if st.Percent > 100 {
			st.Percent = 100
		}
	}
	return st
}

// Snapshot bundles everything the insights page renders for one month.
type Snapshot struct {
	Month      core.Month
	Income     core.Money
	FixedTotal core.Money
	BudgetGoal core.Money
	Breakdown  []CategoryTotal
	Slices     []Slice
	Trend      []MonthlySavings
	Series     []Point
	Statuses   []MonthStatus
}

// Build runs every aggregation over one consistent input set.
func Build(cfg core.FixedExpenseConfig, records []core.VariableExpense, month core.Month) Snapshot {
	breakdown := CategoryBreakdown(records, month)
	trend := SavingsTrend(cfg, records)
	return Snapshot{
		Month:      month,
		Income:     cfg.Income,
		FixedTotal: cfg.Total(),
		BudgetGoal: cfg.BudgetGoal,
		Breakdown:  breakdown,
		Slices:     PieSlices(breakdown),
		Trend:      trend,
		Series:     TrendSeries(trend),
		Statuses:   MonthStatuses(cfg, records),
	}
}

// HasBreakdown reports whether the selected month has any variable spending records.
func (s Snapshot) HasBreakdown() bool {
	return len(s.Breakdown) > 0
}
