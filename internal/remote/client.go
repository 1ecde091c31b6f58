// Package remote implements the record collaborators against a finance API
// speaking the JSON shapes in package api.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finplan/internal/api"
	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/session"
)

// Ensure interface conformance
var _ records.Store = (*Client)(nil)

// ErrDataShape reports a response that decoded but lacks what the caller needs.
var ErrDataShape = errors.New("invalid data returned from server")

// FetchError is a non-2xx response. It unwraps to the records or session
// sentinel matching its status, so callers can use errors.Is uniformly.
type FetchError struct {
	Op      string
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

func (e *FetchError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return records.ErrValidation
	case http.StatusNotFound:
		return records.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return session.ErrNoSession
	default:
		return records.ErrPersistence
	}
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL. A nil httpClient gets
// a 15 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) FixedConfig(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, error) {
	var body api.FixedConfigResponse
	if err := c.do(ctx, "fetch fixed expenses", http.MethodGet, "/api/fixed-expenses", user, nil, &body); err != nil {
		return core.FixedExpenseConfig{}, err
	}
	if body.Data == nil {
		return core.FixedExpenseConfig{}, records.ErrSetupIncomplete
	}
	cfg, err := body.Data.ToConfig()
	if err != nil {
		return core.FixedExpenseConfig{}, fmt.Errorf("%w: %w", ErrDataShape, err)
	}
	return cfg, nil
}

func (c *Client) SaveFixedConfig(ctx context.Context, user session.Identity, cfg core.FixedExpenseConfig) error {
	if err := cfg.Validate(); err != nil {
		return records.Invalid(err)
	}
	req := api.SaveFixedConfigRequest{Email: string(user), FixedConfig: api.FromConfig(cfg)}
	return c.do(ctx, "save fixed expenses", http.MethodPost, "/api/fixed-expenses", "", req, nil)
}

func (c *Client) VariableExpenses(ctx context.Context, user session.Identity) ([]core.VariableExpense, error) {
	var body api.ExpenseListResponse
	if err := c.do(ctx, "fetch expenses", http.MethodGet, "/api/variable-expenses", user, nil, &body); err != nil {
		return nil, err
	}
	out := make([]core.VariableExpense, 0, len(body.Expenses))
	for i, e := range body.Expenses {
		ve, err := e.ToExpense()
		if err != nil {
			return nil, fmt.Errorf("%w: expense %d: %w", ErrDataShape, i, err)
		}
		if ve.ID == "" {
			return nil, fmt.Errorf("%w: expense %d: missing expenseId", ErrDataShape, i)
		}
		out = append(out, ve)
	}
	return out, nil
}

// AddVariableExpense posts e; the server answers with the user's expenses and
// the created one last.
func (c *Client) AddVariableExpense(ctx context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error) {
	if err := e.Validate(); err != nil {
		return core.VariableExpense{}, records.Invalid(err)
	}
	req := api.AddExpenseRequest{
		Email:       string(user),
		Description: e.Description,
		Amount:      api.Dollars(e.Amount.Dollars()),
		Category:    string(e.Category),
		Month:       string(e.Month),
	}
	var body api.AddExpenseResponse
	if err := c.do(ctx, "add expense", http.MethodPost, "/api/variable-expenses", "", req, &body); err != nil {
		return core.VariableExpense{}, err
	}
	list := body.Data.Expenses
	if len(list) == 0 || list[len(list)-1].ExpenseID == "" {
		return core.VariableExpense{}, ErrDataShape
	}
	e.ID = string(list[len(list)-1].ExpenseID)
	return e, nil
}

func (c *Client) DeleteVariableExpense(ctx context.Context, user session.Identity, id string) error {
	if strings.TrimSpace(id) == "" {
		return records.ErrNotFound
	}
	return c.do(ctx, "delete expense", http.MethodDelete, "/api/variable-expenses/"+url.PathEscape(id), user, nil, nil)
}

// MonthlyExpenses returns spent per month (fixed total included) and the fixed income.
func (c *Client) MonthlyExpenses(ctx context.Context, user session.Identity) (map[core.Month]core.Money, core.Money, error) {
	var body api.MonthlyExpensesResponse
	if err := c.do(ctx, "fetch monthly expenses", http.MethodGet, "/api/monthly-expenses", user, nil, &body); err != nil {
		return nil, core.Money{}, err
	}
	spent, err := api.ParseMonthlyTotals(body.MonthlyExpenses)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("%w: %w", ErrDataShape, err)
	}
	income, err := core.MoneyFromFloat(body.FixedIncome)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("%w: fixed income: %w", ErrDataShape, err)
	}
	return spent, income, nil
}

// Advice asks the server's advisor about month.
func (c *Client) Advice(ctx context.Context, user session.Identity, month core.Month) (string, error) {
	var body api.AdviceResponse
	path := "/api/advice?month=" + url.QueryEscape(string(month))
	if err := c.do(ctx, "fetch advice", http.MethodGet, path, user, nil, &body); err != nil {
		return "", err
	}
	return body.Response, nil
}

// do sends one request. When user is set it is added as the email query
// parameter; in is JSON-encoded when non-nil and out decoded when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, user session.Identity, in, out any) error {
	target := c.baseURL + path
	if user != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + "email=" + url.QueryEscape(string(user))
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return records.Persistence(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := &FetchError{Op: op, Status: resp.StatusCode}
		var eb api.ErrorResponse
		if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(raw) > 0 {
			if json.Unmarshal(raw, &eb) == nil {
				fe.Message = eb.Error
			}
		}
		slog.WarnContext(ctx, "Remote request failed", "op", op, "status", resp.StatusCode, "message", fe.Message)
		return fe
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDataShape, op, err)
	}
	return nil
}
