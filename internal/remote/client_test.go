package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finplan/internal/api"
	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/session"
)

const user = session.Identity("ada@example.com")

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFixedConfig(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/fixed-expenses" || r.URL.Query().Get("email") != string(user) {
			t.Errorf("unexpected request %s", r.URL)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"income": 3000, "budgetGoal": 500,
			"expenses": []map[string]any{{"category": "Rent", "amount": 1000}},
		}})
	})
	cfg, err := c.FixedConfig(context.Background(), user)
	if err != nil {
		t.Fatalf("FixedConfig: %v", err)
	}
	if cfg.Income.Cents != 300000 || cfg.Total().Cents != 100000 {
		t.Fatalf("got %+v", cfg)
	}
}

func TestFixedConfigAbsentIsSetupIncomplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
	})
	if _, err := c.FixedConfig(context.Background(), user); !errors.Is(err, records.ErrSetupIncomplete) {
		t.Fatalf("expected ErrSetupIncomplete, got %v", err)
	}
}

func TestAddVariableExpenseTakesLastID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.AddExpenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Email != string(user) || req.Amount == nil || *req.Amount != 12.5 || req.Month != "March" {
			t.Errorf("unexpected body %+v", req)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"expenses": []map[string]any{
			{"expenseId": 1, "description": "old", "amount": 1, "category": "other", "month": "March"},
			{"expenseId": 2, "description": req.Description, "amount": req.Amount, "category": req.Category, "month": req.Month},
		}}})
	})
	in := core.VariableExpense{Description: "pizza", Amount: core.Money{Cents: 1250}, Category: core.Dining, Month: core.March}
	got, err := c.AddVariableExpense(context.Background(), user, in)
	if err != nil {
		t.Fatalf("AddVariableExpense: %v", err)
	}
	if got.ID != "2" || got.Description != "pizza" {
		t.Fatalf("got %+v", got)
	}
}

func TestAddVariableExpenseWithoutIDIsDataShape(t *testing.T) {
	for _, payload := range []any{
		map[string]any{"data": map[string]any{"expenses": []any{}}},
		map[string]any{"data": map[string]any{"expenses": []map[string]any{{"description": "x"}}}},
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, payload)
		})
		in := core.VariableExpense{Description: "x", Amount: core.Money{Cents: 1}, Category: core.Other, Month: core.May}
		if _, err := c.AddVariableExpense(context.Background(), user, in); !errors.Is(err, ErrDataShape) {
			t.Fatalf("expected ErrDataShape, got %v", err)
		}
	}
}

func TestAddVariableExpenseValidatesBeforeSending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	_, err := c.AddVariableExpense(context.Background(), user, core.VariableExpense{Amount: core.Money{Cents: 1}, Category: core.Other, Month: core.May})
	if !errors.Is(err, records.ErrValidation) || !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("got %v", err)
	}
}

func TestFetchErrorMapsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, records.ErrValidation},
		{http.StatusNotFound, records.ErrNotFound},
		{http.StatusUnauthorized, session.ErrNoSession},
		{http.StatusInternalServerError, records.ErrPersistence},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tt.status, api.ErrorResponse{Error: "boom"})
		})
		err := c.DeleteVariableExpense(context.Background(), user, "9")
		if !errors.Is(err, tt.want) {
			t.Fatalf("status %d: got %v", tt.status, err)
		}
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Message != "boom" || fe.Status != tt.status {
			t.Fatalf("status %d: FetchError = %+v", tt.status, fe)
		}
	}
}

func TestVariableExpensesRejectsMalformedRecord(t *testing.T) {
	good := map[string]any{"expenseId": "a", "description": "ok", "amount": 5, "category": "Dining", "month": "March"}
	tests := []struct {
		name string
		bad  map[string]any
	}{
		{"negative amount", map[string]any{"expenseId": "b", "description": "bad", "amount": -30, "category": "dining", "month": "March"}},
		{"missing amount", map[string]any{"expenseId": "b", "description": "bad", "category": "dining", "month": "March"}},
		{"unknown category", map[string]any{"expenseId": "b", "description": "bad", "amount": 5, "category": "fuel", "month": "March"}},
		{"missing id", map[string]any{"description": "no id", "amount": 5, "category": "dining", "month": "March"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"expenses": []map[string]any{good, tt.bad}})
			})
			got, err := c.VariableExpenses(context.Background(), user)
			if !errors.Is(err, ErrDataShape) {
				t.Fatalf("expected ErrDataShape, got %v", err)
			}
			if got != nil {
				t.Errorf("partial list returned: %+v", got)
			}
		})
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"expenses": []map[string]any{good}})
	})
	got, err := c.VariableExpenses(context.Background(), user)
	if err != nil || len(got) != 1 || got[0].ID != "a" || got[0].Category != core.Dining {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestMonthlyExpenses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"monthlyExpenses": map[string]float64{"March": 1200}, "fixedIncome": 3000})
	})
	spent, income, err := c.MonthlyExpenses(context.Background(), user)
	if err != nil {
		t.Fatalf("MonthlyExpenses: %v", err)
	}
	if spent[core.March].Cents != 120000 || income.Cents != 300000 {
		t.Fatalf("spent=%v income=%v", spent, income)
	}
}

func TestDecodeFailureIsDataShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
	})
	if _, err := c.VariableExpenses(context.Background(), user); !errors.Is(err, ErrDataShape) {
		t.Fatalf("expected ErrDataShape, got %v", err)
	}
}
