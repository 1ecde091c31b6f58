package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/session"

	_ "modernc.org/sqlite"
)

var _ records.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FixedConfig implements records.FixedConfigReader
func (r *SQLiteRepository) FixedConfig(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, error) {
	var cfg core.FixedExpenseConfig
	err := r.db.QueryRowContext(ctx,
		`SELECT income_cents, budget_goal_cents FROM fixed_configs WHERE user_email = ?`, string(user)).
		Scan(&cfg.Income.Cents, &cfg.BudgetGoal.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FixedExpenseConfig{}, records.ErrSetupIncomplete
	}
	if err != nil {
		return core.FixedExpenseConfig{}, records.Persistence("get fixed config", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, amount_cents FROM fixed_expenses WHERE user_email = ? ORDER BY position`, string(user))
	if err != nil {
		return core.FixedExpenseConfig{}, records.Persistence("list fixed expenses", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fe core.FixedExpense
		if err := rows.Scan(&fe.Category, &fe.Amount.Cents); err != nil {
			return core.FixedExpenseConfig{}, records.Persistence("scan fixed expense", err)
		}
		cfg.Expenses = append(cfg.Expenses, fe)
	}
	if err := rows.Err(); err != nil {
		return core.FixedExpenseConfig{}, records.Persistence("iterate fixed expenses", err)
	}
	return cfg, nil
}

// SaveFixedConfig implements records.FixedConfigWriter
func (r *SQLiteRepository) SaveFixedConfig(ctx context.Context, user session.Identity, cfg core.FixedExpenseConfig) error {
	if err := cfg.Validate(); err != nil {
		return records.Invalid(err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return records.Persistence("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fixed_configs (user_email, income_cents, budget_goal_cents, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_email) DO UPDATE SET
			income_cents = excluded.income_cents,
			budget_goal_cents = excluded.budget_goal_cents,
			updated_at = CURRENT_TIMESTAMP`,
		string(user), cfg.Income.Cents, cfg.BudgetGoal.Cents); err != nil {
		return records.Persistence("upsert fixed config", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fixed_expenses WHERE user_email = ?`, string(user)); err != nil {
		return records.Persistence("clear fixed expenses", err)
	}
	for i, fe := range cfg.Expenses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fixed_expenses (user_email, position, category, amount_cents) VALUES (?, ?, ?, ?)`,
			string(user), i, fe.Category, fe.Amount.Cents); err != nil {
			return records.Persistence("insert fixed expense", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return records.Persistence("commit fixed config", err)
	}

	slog.InfoContext(ctx, "Fixed config saved to SQLite",
		"user", string(user),
		"income_cents", cfg.Income.Cents,
		"fixed_expenses", len(cfg.Expenses))
	return nil
}

// VariableExpenses implements records.ExpenseLister
func (r *SQLiteRepository) VariableExpenses(ctx context.Context, user session.Identity) ([]core.VariableExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, category, month
		FROM variable_expenses WHERE user_email = ? ORDER BY id`, string(user))
	if err != nil {
		return nil, records.Persistence("list variable expenses", err)
	}
	defer rows.Close()

	out := []core.VariableExpense{}
	for rows.Next() {
		var (
			id  int64
			e   core.VariableExpense
			cat string
			mon string
		)
		if err := rows.Scan(&id, &e.Description, &e.Amount.Cents, &cat, &mon); err != nil {
			return nil, records.Persistence("scan variable expense", err)
		}
		e.ID = strconv.FormatInt(id, 10)
		e.Category = core.Category(cat)
		e.Month = core.Month(mon)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, records.Persistence("iterate variable expenses", err)
	}
	return out, nil
}

// AddVariableExpense implements records.ExpenseWriter
func (r *SQLiteRepository) AddVariableExpense(ctx context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error) {
	if err := e.Validate(); err != nil {
		return core.VariableExpense{}, records.Invalid(err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO variable_expenses (user_email, description, amount_cents, category, month)
		VALUES (?, ?, ?, ?, ?)`,
		string(user), e.Description, e.Amount.Cents, string(e.Category), string(e.Month))
	if err != nil {
		return core.VariableExpense{}, records.Persistence("insert variable expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.VariableExpense{}, records.Persistence("read inserted id", err)
	}
	e.ID = strconv.FormatInt(id, 10)

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"month", e.Month)

	return e, nil
}

// DeleteVariableExpense implements records.ExpenseDeleter
func (r *SQLiteRepository) DeleteVariableExpense(ctx context.Context, user session.Identity, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return records.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM variable_expenses WHERE id = ? AND user_email = ?`, n, string(user))
	if err != nil {
		return records.Persistence("delete variable expense", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return records.Persistence("delete variable expense", err)
	}
	if affected == 0 {
		return records.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", n)
	return nil
}
