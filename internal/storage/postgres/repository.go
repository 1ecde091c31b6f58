// Package postgres stores fixed configurations and variable expenses in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finplan/internal/core"
	"finplan/internal/records"
	"finplan/internal/session"
)

var _ records.Store = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects, pings and migrates the database at databaseURL.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	databaseURL = normalizeURL(databaseURL)
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// normalizeURL accepts postgresql:// URLs and defaults sslmode to disable.
func normalizeURL(u string) string {
	if strings.HasPrefix(u, "postgresql://") {
		u = "postgres://" + strings.TrimPrefix(u, "postgresql://")
	}
	if !strings.Contains(u, "sslmode=") {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + "sslmode=disable"
	}
	return u
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) FixedConfig(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, error) {
	var cfg core.FixedExpenseConfig
	err := r.pool.QueryRow(ctx,
		`SELECT income_cents, budget_goal_cents FROM fixed_configs WHERE user_email = $1`, string(user)).
		Scan(&cfg.Income.Cents, &cfg.BudgetGoal.Cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.FixedExpenseConfig{}, records.ErrSetupIncomplete
	}
	if err != nil {
		return core.FixedExpenseConfig{}, records.Persistence("get fixed config", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT category, amount_cents FROM fixed_expenses WHERE user_email = $1 ORDER BY position`, string(user))
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

func (r *Repository) SaveFixedConfig(ctx context.Context, user session.Identity, cfg core.FixedExpenseConfig) error {
	if err := cfg.Validate(); err != nil {
		return records.Invalid(err)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO fixed_configs (user_email, income_cents, budget_goal_cents, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (user_email) DO UPDATE SET
				income_cents = EXCLUDED.income_cents,
				budget_goal_cents = EXCLUDED.budget_goal_cents,
				updated_at = now()`,
			string(user), cfg.Income.Cents, cfg.BudgetGoal.Cents); err != nil {
			return fmt.Errorf("upsert fixed config: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM fixed_expenses WHERE user_email = $1`, string(user)); err != nil {
			return fmt.Errorf("clear fixed expenses: %w", err)
		}
		batch := &pgx.Batch{}
		for i, fe := range cfg.Expenses {
			batch.Queue(`INSERT INTO fixed_expenses (user_email, position, category, amount_cents) VALUES ($1, $2, $3, $4)`,
				string(user), i, fe.Category, fe.Amount.Cents)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert fixed expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return records.Persistence("save fixed config", err)
	}

	slog.InfoContext(ctx, "Fixed config saved to Postgres",
		"user", string(user),
		"income_cents", cfg.Income.Cents,
		"fixed_expenses", len(cfg.Expenses))
	return nil
}

func (r *Repository) VariableExpenses(ctx context.Context, user session.Identity) ([]core.VariableExpense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, description, amount_cents, category, month
		FROM variable_expenses WHERE user_email = $1 ORDER BY id`, string(user))
	if err != nil {
		return nil, records.Persistence("list variable expenses", err)
	}
	defer rows.Close()

	out := []core.VariableExpense{}
	for rows.Next() {
		var (
			id       int64
			e        core.VariableExpense
			cat, mon string
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

func (r *Repository) AddVariableExpense(ctx context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error) {
	if err := e.Validate(); err != nil {
		return core.VariableExpense{}, records.Invalid(err)
	}
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO variable_expenses (user_email, description, amount_cents, category, month)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		string(user), e.Description, e.Amount.Cents, string(e.Category), string(e.Month)).Scan(&id)
	if err != nil {
		return core.VariableExpense{}, records.Persistence("insert variable expense", err)
	}
	e.ID = strconv.FormatInt(id, 10)

	slog.InfoContext(ctx, "Expense saved to Postgres",
		"id", id,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"month", e.Month)
	return e, nil
}

func (r *Repository) DeleteVariableExpense(ctx context.Context, user session.Identity, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return records.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM variable_expenses WHERE id = $1 AND user_email = $2`, n, string(user))
	if err != nil {
		return records.Persistence("delete variable expense", err)
	}
	if tag.RowsAffected() == 0 {
		return records.ErrNotFound
	}
	return nil
}
