// Package records defines the collaborator contracts for reading and writing
// a user's fixed setup and variable expenses. Backends live in subpackages
// (memory, google, remote) and in internal/storage.
package records

import (
	"context"

	"finplan/internal/core"
	"finplan/internal/session"
)

// Ports for outbound adapters. Every call carries the user explicitly.
type (
	// FixedConfigReader returns ErrSetupIncomplete when the user never saved a setup.
	FixedConfigReader interface {
		FixedConfig(ctx context.Context, user session.Identity) (core.FixedExpenseConfig, error)
	}

	// FixedConfigWriter upserts the whole configuration, replacing any prior one.
	FixedConfigWriter interface {
		SaveFixedConfig(ctx context.Context, user session.Identity, cfg core.FixedExpenseConfig) error
	}

	ExpenseLister interface {
		VariableExpenses(ctx context.Context, user session.Identity) ([]core.VariableExpense, error)
	}

	// ExpenseWriter stores e and returns it with its assigned ID.
	ExpenseWriter interface {
		AddVariableExpense(ctx context.Context, user session.Identity, e core.VariableExpense) (core.VariableExpense, error)
	}

	// ExpenseDeleter returns ErrNotFound when id does not belong to user.
	ExpenseDeleter interface {
		DeleteVariableExpense(ctx context.Context, user session.Identity, id string) error
	}

	Store interface {
		FixedConfigReader
		FixedConfigWriter
		ExpenseLister
		ExpenseWriter
		ExpenseDeleter
	}
)
