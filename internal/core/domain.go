// Package core holds the finance domain: categories, months, money and the
// expense records with their validation rules.
package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	Groceries     Category = "groceries"
	Utilities     Category = "utilities"
	Rent          Category = "rent"
	Shopping      Category = "shopping"
	Travel        Category = "travel"
	Entertainment Category = "entertainment"
	Healthcare    Category = "healthcare"
	Dining        Category = "dining"
	Other         Category = "other"
)

const (
	January   Month = "January"
	February  Month = "February"
	March     Month = "March"
	April     Month = "April"
	May       Month = "May"
	June      Month = "June"
	July      Month = "July"
	August    Month = "August"
	September Month = "September"
	October   Month = "October"
	November  Month = "November"
	December  Month = "December"
)

// MaxDescriptionLength bounds VariableExpense.Description in bytes.
const MaxDescriptionLength = 200

type (
	// Category is one of the nine variable-expense labels, stored lower-case.
	Category string

	// Month is an English calendar month name.
	Month string

	Money struct {
		Cents int64
	}

	VariableExpense struct {
		ID          string
		Description string
		Amount      Money
		Category    Category
		Month       Month
	}

	FixedExpense struct {
		Category string // free text, e.g. "Rent" or "Car loan"
		Amount   Money
	}

	// FixedExpenseConfig is the per-user setup: one per user, replaced wholesale on save.
	FixedExpenseConfig struct {
		Income     Money
		BudgetGoal Money
		Expenses   []FixedExpense
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrEmptyCategory    = errors.New("empty fixed expense category")
)

var categories = []Category{
	Groceries, Utilities, Rent, Shopping, Travel, Entertainment, Healthcare, Dining, Other,
}

var months = []Month{
	January, February, March, April, May, June,
	July, August, September, October, November, December,
}

// Categories returns the variable-expense categories in form order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Months returns the calendar months January through December.
func Months() []Month {
	return append([]Month(nil), months...)
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c Category) Validate() error {
	for _, known := range categories {
		if c == known {
			return nil
		}
	}
	return ErrInvalidCategory
}

// Label returns the display form of the category.
func (c Category) Label() string {
	return DisplayLabel(string(c))
}

// DisplayLabel upper-cases the first letter of s and leaves the rest untouched.
func DisplayLabel(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ParseMonth matches s case-insensitively against the month names and
// returns the canonical capitalised form.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, m := range months {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", ErrInvalidMonth
}

// Index returns the zero-based calendar position of m, or -1 when m is unknown.
func (m Month) Index() int {
	for i, known := range months {
		if m == known {
			return i
		}
	}
	return -1
}

func (m Month) Validate() error {
	if m.Index() < 0 {
		return ErrInvalidMonth
	}
	return nil
}

// Validate rejects negative amounts; zero is a valid amount.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (e VariableExpense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrLongDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	return e.Month.Validate()
}

func (f FixedExpense) Validate() error {
	if strings.TrimSpace(f.Category) == "" {
		return ErrEmptyCategory
	}
	return f.Amount.Validate()
}

func (c FixedExpenseConfig) Validate() error {
	if err := c.Income.Validate(); err != nil {
		return fmt.Errorf("income: %w", err)
	}
	if err := c.BudgetGoal.Validate(); err != nil {
		return fmt.Errorf("budget goal: %w", err)
	}
	for i, e := range c.Expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("fixed expense %d: %w", i+1, err)
		}
	}
	return nil
}

// Total sums the fixed expenses in order.
func (c FixedExpenseConfig) Total() Money {
	var total Money
	for _, e := range c.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}
