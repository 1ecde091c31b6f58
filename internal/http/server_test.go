package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finplan/internal/api"
	"finplan/internal/insights"
	"finplan/internal/log"
	"finplan/internal/records/memory"
	"finplan/internal/services"
	"finplan/internal/session"
)

const alice = "alice@example.com"

type fakeAdvisor struct {
	enabled bool
	month   string
	err     error
}

func (f *fakeAdvisor) Enabled() bool { return f.enabled }

func (f *fakeAdvisor) Advise(_ context.Context, snap insights.Snapshot) (string, error) {
	f.month = string(snap.Month)
	return "Spend less on dining.", f.err
}

type fakeSessions struct {
	id  session.Identity
	err error
}

func (f fakeSessions) Current(context.Context, ...*http.Cookie) (session.Identity, error) {
	return f.id, f.err
}

func newTestServer(t *testing.T, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Finance: services.NewFinanceService(memory.New(), nil, nil),
		Logger:  log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s := NewServer(":0", opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (status %d)", v, err, rec.Code)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.Checks = map[string]Check{"store": func(context.Context) error { return nil }}
	})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rec.Code, rec.Body)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}

	failing := newTestServer(t, func(o *Options) {
		o.Checks = map[string]Check{"redis": func(context.Context) error { return errors.New("connection refused") }}
	})
	rec := do(t, failing, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("failing readyz: %d %s", rec.Code, rec.Body)
	}
}

func TestFixedConfigRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/fixed-expenses?email="+alice, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"data":null}` {
		t.Fatalf("before setup: %d %s", rec.Code, rec.Body)
	}

	req := api.SaveFixedConfigRequest{Email: alice, FixedConfig: api.FixedConfig{
		Income: api.Dollars(3000), BudgetGoal: api.Dollars(500),
		Expenses: []api.FixedExpense{{Category: "Rent", Amount: api.Dollars(1200)}},
	}}
	rec = do(t, s, http.MethodPost, "/api/fixed-expenses", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/api/fixed-expenses?email=Alice@Example.com", nil)
	got := decode[api.FixedConfigResponse](t, rec)
	if got.Data == nil || *got.Data.Income != 3000 || len(got.Data.Expenses) != 1 || *got.Data.Expenses[0].Amount != 1200 {
		t.Errorf("after save: %+v", got.Data)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	add := func(desc string, amount float64) api.Expense {
		rec := do(t, s, http.MethodPost, "/api/variable-expenses", api.AddExpenseRequest{
			Email: alice, Description: desc, Amount: api.Dollars(amount), Category: "Dining", Month: "march",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add %s: %d %s", desc, rec.Code, rec.Body)
		}
		resp := decode[api.AddExpenseResponse](t, rec)
		last := resp.Data.Expenses[len(resp.Data.Expenses)-1]
		if last.Description != desc || last.ExpenseID == "" {
			t.Fatalf("created record not last: %+v", resp.Data.Expenses)
		}
		return last
	}
	first := add("Pizza", 18.5)
	add("Sushi", 40)

	list := decode[api.ExpenseListResponse](t, do(t, s, http.MethodGet, "/api/variable-expenses?email="+alice, nil))
	if len(list.Expenses) != 2 || list.Expenses[0].Category != "dining" || list.Expenses[0].Month != "March" {
		t.Fatalf("list = %+v", list.Expenses)
	}

	rec := do(t, s, http.MethodDelete, "/api/variable-expenses/"+string(first.ExpenseID)+"?email="+alice, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, s, http.MethodDelete, "/api/variable-expenses/"+string(first.ExpenseID)+"?email="+alice, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: %d", rec.Code)
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"missing identity", http.MethodGet, "/api/variable-expenses", nil, http.StatusUnauthorized},
		{"malformed identity", http.MethodGet, "/api/variable-expenses?email=nobody", nil, http.StatusUnauthorized},
		{"malformed json", http.MethodPost, "/api/variable-expenses", "not an object", http.StatusBadRequest},
		{"negative amount", http.MethodPost, "/api/variable-expenses", api.AddExpenseRequest{Email: alice, Description: "x", Amount: api.Dollars(-1), Category: "dining", Month: "March"}, http.StatusUnprocessableEntity},
		{"unknown category", http.MethodPost, "/api/variable-expenses", api.AddExpenseRequest{Email: alice, Description: "x", Amount: api.Dollars(1), Category: "pets", Month: "March"}, http.StatusUnprocessableEntity},
		{"empty fixed category", http.MethodPost, "/api/fixed-expenses", api.SaveFixedConfigRequest{Email: alice, FixedConfig: api.FixedConfig{Income: api.Dollars(1), BudgetGoal: api.Dollars(0), Expenses: []api.FixedExpense{{Amount: api.Dollars(5)}}}}, http.StatusUnprocessableEntity},
		{"unknown month", http.MethodGet, "/api/insights?email=" + alice + "&month=Smarch", nil, http.StatusBadRequest},
		{"insights before setup", http.MethodGet, "/api/insights?email=" + alice, nil, http.StatusNotFound},
		{"advisor disabled", http.MethodGet, "/api/advice?email=" + alice, nil, http.StatusServiceUnavailable},
		{"no session service", http.MethodGet, "/api/session", nil, http.StatusUnauthorized},
		{"wrong method", http.MethodPut, "/api/variable-expenses", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if tt.want != http.StatusMethodNotAllowed {
				if e := decode[api.ErrorResponse](t, rec); e.Error == "" {
					t.Error("empty error message")
				}
			}
		})
	}
}

func TestMissingAmountsAreRejected(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		target string
		body   map[string]any
		field  string
	}{
		{"expense amount", "/api/variable-expenses",
			map[string]any{"email": alice, "description": "x", "category": "dining", "month": "March"}, "amount"},
		{"income", "/api/fixed-expenses",
			map[string]any{"email": alice, "budgetGoal": 500, "expenses": []any{}}, "income"},
		{"budget goal", "/api/fixed-expenses",
			map[string]any{"email": alice, "income": 3000, "expenses": []any{}}, "budgetGoal"},
		{"fixed expense amount", "/api/fixed-expenses",
			map[string]any{"email": alice, "income": 3000, "budgetGoal": 500, "expenses": []any{map[string]any{"category": "Rent"}}}, "expenses[0].amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.target, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, want 422: %s", rec.Code, rec.Body)
			}
			if e := decode[api.ErrorResponse](t, rec); !strings.Contains(e.Error, tt.field) {
				t.Errorf("error %q does not name %s", e.Error, tt.field)
			}
		})
	}

	list := decode[api.ExpenseListResponse](t, do(t, s, http.MethodGet, "/api/variable-expenses?email="+alice, nil))
	if len(list.Expenses) != 0 {
		t.Errorf("rejected expense was stored: %+v", list.Expenses)
	}
	rec := do(t, s, http.MethodGet, "/api/fixed-expenses?email="+alice, nil)
	if strings.TrimSpace(rec.Body.String()) != `{"data":null}` {
		t.Errorf("rejected config was stored: %s", rec.Body)
	}
}

func seed(t *testing.T, s *Server) {
	t.Helper()
	do(t, s, http.MethodPost, "/api/fixed-expenses", api.SaveFixedConfigRequest{Email: alice, FixedConfig: api.FixedConfig{
		Income: api.Dollars(3000), BudgetGoal: api.Dollars(500),
		Expenses: []api.FixedExpense{{Category: "Rent", Amount: api.Dollars(1200)}},
	}})
	for _, e := range []api.AddExpenseRequest{
		{Email: alice, Description: "Food", Amount: api.Dollars(300), Category: "groceries", Month: "March"},
		{Email: alice, Description: "Flight", Amount: api.Dollars(100), Category: "travel", Month: "March"},
		{Email: alice, Description: "Cinema", Amount: api.Dollars(20), Category: "entertainment", Month: "May"},
	} {
		if rec := do(t, s, http.MethodPost, "/api/variable-expenses", e); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rec.Code, rec.Body)
		}
	}
}

func TestMonthlyExpenses(t *testing.T) {
	s := newTestServer(t, nil)
	seed(t, s)

	got := decode[api.MonthlyExpensesResponse](t, do(t, s, http.MethodGet, "/api/monthly-expenses?email="+alice, nil))
	if got.FixedIncome != 3000 {
		t.Errorf("fixedIncome = %v", got.FixedIncome)
	}
	if got.MonthlyExpenses["March"] != 1600 || got.MonthlyExpenses["May"] != 1220 || got.MonthlyExpenses["January"] != 1200 {
		t.Errorf("monthlyExpenses = %v", got.MonthlyExpenses)
	}
}

func TestInsights(t *testing.T) {
	s := newTestServer(t, nil)
	seed(t, s)

	got := decode[api.InsightsResponse](t, do(t, s, http.MethodGet, "/api/insights?email="+alice+"&month=march", nil))
	if got.Month != "March" || len(got.Breakdown) != 2 {
		t.Fatalf("insights = %+v", got)
	}
	if got.Breakdown[0].PercentLabel != "Groceries (75%)" || got.Breakdown[1].Percent != 25 {
		t.Errorf("breakdown = %+v", got.Breakdown)
	}
	if len(got.Statuses) != 12 || got.Statuses[2].Spent != 1600 {
		t.Errorf("statuses = %+v", got.Statuses)
	}
}

func TestAdvice(t *testing.T) {
	adv := &fakeAdvisor{enabled: true}
	s := newTestServer(t, func(o *Options) { o.Advisor = adv })
	seed(t, s)

	rec := do(t, s, http.MethodGet, "/api/advice?email="+alice+"&month=May", nil)
	got := decode[api.AdviceResponse](t, rec)
	if got.Response != "Spend less on dining." || adv.month != "May" {
		t.Errorf("advice = %+v for %s", got, adv.month)
	}

	adv.err = errors.New("quota exceeded")
	rec = do(t, s, http.MethodGet, "/api/advice?email="+alice, nil)
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "quota") {
		t.Errorf("advisor failure leaked: %d %s", rec.Code, rec.Body)
	}
}

func TestSession(t *testing.T) {
	tests := []struct {
		name string
		opts func(*Options)
		want int
		body string
	}{
		{"dev stub", func(o *Options) { o.DevEmail = "dev@example.com" }, http.StatusOK, "dev@example.com"},
		{"upstream", func(o *Options) { o.Sessions = fakeSessions{id: alice} }, http.StatusOK, alice},
		{"upstream logged out", func(o *Options) { o.Sessions = fakeSessions{err: session.ErrNoSession} }, http.StatusUnauthorized, "log in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t, tt.opts), http.MethodGet, "/api/session", nil)
			if rec.Code != tt.want || !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("%d %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RateLimit.RequestsPerMinute = 1
		o.RateLimit.Burst = 1
		o.RateLimit.MutationsOnly = true
	})
	body := api.AddExpenseRequest{Email: alice, Description: "x", Amount: api.Dollars(1), Category: "other", Month: "March"}
	if rec := do(t, s, http.MethodPost, "/api/variable-expenses", body); rec.Code != http.StatusCreated {
		t.Fatalf("first: %d", rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/variable-expenses", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/variable-expenses?email="+alice, nil); rec.Code != http.StatusOK {
		t.Errorf("reads must not be throttled: %d", rec.Code)
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := do(t, s, http.MethodGet, "/.env", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status %d", rec.Code)
	}
}
