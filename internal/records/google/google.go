// Package google stores records in a Google Sheets spreadsheet with two tabs:
// one row per variable expense, and one row per fixed expense (the first row
// of a user also carries income and budget goal).
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/session"
)

// Ensure interface conformance
var _ records.Store = (*Client)(nil)

type Options struct {
	SpreadsheetID string
	ExpensesSheet string // default "VariableExpenses"
	ConfigSheet   string // default "FixedConfig"

	// Service account credentials, inline JSON takes precedence over the file.
	CredentialsJSON string
	CredentialsFile string

	// ClientOptions are appended after the credentials, e.g. to point at a test endpoint.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	configSheet   string

	// mu serialises read-modify-write cycles on the sheet.
	mu    sync.Mutex
	newID func() string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.ExpensesSheet == "" {
		opts.ExpensesSheet = "VariableExpenses"
	}
	if opts.ConfigSheet == "" {
		opts.ConfigSheet = "FixedConfig"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		expensesSheet: opts.ExpensesSheet,
		configSheet:   opts.ConfigSheet,
		newID:         uuid.NewString,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var clientOpts []goption.ClientOption
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case strings.TrimSpace(opts.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	case len(opts.ClientOptions) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	clientOpts = append(clientOpts, goption.WithScopes(gsheet.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)

	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) FixedConfig(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, error) {
	rows, err := c.readRows(ctx, c.configSheet, "A2:E")
	if err != nil {
		return core.FixedExpenseConfig{}, err
	}
	cfg, ok := configFromRows(rows, user)
	if !ok {
		return core.FixedExpenseConfig{}, records.ErrSetupIncomplete
	}
	return cfg, nil
}

// SaveFixedConfig rewrites the config tab with the user's rows replaced.
func (c *Client) SaveFixedConfig(ctx context.Context, user session.Identity, cfg core.FixedExpenseConfig) error {
	if err := cfg.Validate(); err != nil {
		return records.Invalid(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readRows(ctx, c.configSheet, "A2:E")
	if err != nil {
		return err
	}
	kept := make([][]interface{}, 0, len(rows)+len(cfg.Expenses))
	for _, r := range rows {
		if !strings.EqualFold(safeGet(r, 0), string(user)) {
			kept = append(kept, toInterfaces(r))
		}
	}
	kept = append(kept, rowsForConfig(user, cfg)...)

	rng := fmt.Sprintf("%s!A2:E", c.configSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return records.Persistence("clear config sheet", err)
	}
	vr := &gsheet.ValueRange{Values: kept}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A2", c.configSheet), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return records.Persistence("write config sheet", err)
	}
	slog.InfoContext(ctx, "Fixed config saved to Google Sheets", "user", string(user), "rows", len(cfg.Expenses))
	return nil
}

func (c *Client) VariableExpenses(ctx context.Context, user session.Identity) ([]core.VariableExpense, error) {
	rows, err := c.readRows(ctx, c.expensesSheet, "A2:F")
	if err != nil {
		return nil, err
	}
	out := []core.VariableExpense{}
	for i, r := range rows {
		if !strings.EqualFold(safeGet(r, 1), string(user)) {
			continue
		}
		e, err := expenseFromRow(r)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed expense row", "row", i+2, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) AddVariableExpense(ctx context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error) {
	if err := e.Validate(); err != nil {
		return core.VariableExpense{}, records.Invalid(err)
	}
	e.ID = c.newID()

	rng := fmt.Sprintf("%s!A:F", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{rowForExpense(user, e)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.VariableExpense{}, records.Persistence("append expense row", err)
	}
	slog.InfoContext(ctx, "Expense appended to Google Sheets", "id", e.ID, "month", e.Month)
	return e, nil
}

func (c *Client) DeleteVariableExpense(ctx context.Context, user session.Identity, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readRows(ctx, c.expensesSheet, "A2:B")
	if err != nil {
		return err
	}
	idx := -1
	for i, r := range rows {
		if safeGet(r, 0) == id && strings.EqualFold(safeGet(r, 1), string(user)) {
			idx = i + 1 // row 0 is the header
			break
		}
	}
	if idx < 0 {
		return records.ErrNotFound
	}

	sheetID, err := c.sheetID(ctx, c.expensesSheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(idx),
			EndIndex:   int64(idx + 1),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return records.Persistence("delete expense row", err)
	}
	slog.InfoContext(ctx, "Expense deleted from Google Sheets", "id", id, "row", idx+1)
	return nil
}

func (c *Client) readRows(ctx context.Context, sheet, cells string) ([][]string, error) {
	if c.svc == nil {
		return nil, records.Persistence("read sheet", errors.New("sheets service not initialized"))
	}
	rng := fmt.Sprintf("%s!%s", sheet, cells)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, records.Persistence("read "+sheet, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, v := range resp.Values {
		out = append(out, toStrings(v))
	}
	return out, nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, records.Persistence("get spreadsheet", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, records.Persistence("get spreadsheet", fmt.Errorf("sheet %q not found", title))
}
