package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"dining", "Dining", " DINING "} {
		c, err := ParseCategory(in)
		if err != nil || c != Dining {
			t.Fatalf("%q: got %q err=%v", in, c, err)
		}
	}
	if _, err := ParseCategory("fuel"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if len(Categories()) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(Categories()))
	}
}

func TestParseMonthAndIndex(t *testing.T) {
	m, err := ParseMonth("march")
	if err != nil || m != March {
		t.Fatalf("got %q err=%v", m, err)
	}
	if March.Index() != 2 || December.Index() != 11 {
		t.Fatalf("unexpected indexes %d %d", March.Index(), December.Index())
	}
	if Month("Smarch").Index() != -1 {
		t.Fatalf("unknown month should index to -1")
	}
	if _, err := ParseMonth("13"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	ms := Months()
	if len(ms) != 12 || ms[0] != January || ms[11] != December {
		t.Fatalf("unexpected months %v", ms)
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{"dining": "Dining", "Dining": "Dining", "": "", "élan": "Élan", "x": "X"}
	for in, want := range cases {
		if got := DisplayLabel(in); got != want {
			t.Fatalf("%q: got %q want %q", in, got, want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("zero should be valid, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestVariableExpenseValidate(t *testing.T) {
	good := VariableExpense{Description: "ok", Amount: Money{Cents: 100}, Category: Dining, Month: March}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    VariableExpense
		want error
	}{
		{VariableExpense{Description: " ", Amount: Money{Cents: 1}, Category: Dining, Month: March}, ErrEmptyDescription},
		{VariableExpense{Description: strings.Repeat("a", 201), Amount: Money{Cents: 1}, Category: Dining, Month: March}, ErrLongDescription},
		{VariableExpense{Description: "a", Amount: Money{Cents: -1}, Category: Dining, Month: March}, ErrInvalidAmount},
		{VariableExpense{Description: "a", Amount: Money{Cents: 1}, Category: "Dining", Month: March}, ErrInvalidCategory},
		{VariableExpense{Description: "a", Amount: Money{Cents: 1}, Category: Dining, Month: "march"}, ErrInvalidMonth},
	}
	for i, tc := range bads {
		if err := tc.e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestFixedExpenseConfig(t *testing.T) {
	cfg := FixedExpenseConfig{
		Income:     Money{Cents: 300000},
		BudgetGoal: Money{Cents: 50000},
		Expenses: []FixedExpense{
			{Category: "Rent", Amount: Money{Cents: 100000}},
			{Category: "Internet", Amount: Money{Cents: 4999}},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got := cfg.Total().Cents; got != 104999 {
		t.Fatalf("total = %d", got)
	}

	cfg.Expenses = append(cfg.Expenses, FixedExpense{Category: "", Amount: Money{Cents: 1}})
	if err := cfg.Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if err := (FixedExpenseConfig{Income: Money{Cents: -5}}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if (FixedExpenseConfig{}).Total().Cents != 0 {
		t.Fatalf("empty config should total zero")
	}
}
