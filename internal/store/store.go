// Package store defines the record-access contracts the expense core is
// built against. Implementations own persistence; the calculator and the
// ledger only ever see the typed records exchanged here.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"divvy/internal/models"
	"divvy/internal/split"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidShares  = errors.New("share batch failed validation")
	ErrAlreadySettled = errors.New("share is already settled")
)

// MemberDirectory resolves a group's current members to display names for
// seeding balances. The calculator itself works purely with ids.
type MemberDirectory interface {
	GroupMembers(ctx context.Context, groupID int) ([]split.Member, error)
}

// ExpenseStore persists expenses together with their shares. An expense
// and its shares form one consistency unit: CreateWithShares must write
// both or neither.
type ExpenseStore interface {
	// CreateWithShares persists the expense and all of its share rows
	// atomically and returns the expense with its assigned id.
	CreateWithShares(ctx context.Context, expense models.Expense, shares []models.ExpenseShare) (models.Expense, error)

	Get(ctx context.Context, id int) (models.Expense, error)

	ListByGroup(ctx context.Context, groupID int) ([]models.Expense, error)

	// Delete removes the expense; share rows cascade with it.
	Delete(ctx context.Context, id int) error
}

// ShareStore reads and settles persisted expense shares. Share rows are
// created only through ExpenseStore.CreateWithShares.
type ShareStore interface {
	GetShare(ctx context.Context, id int) (models.ExpenseShare, error)

	ListByExpense(ctx context.Context, expenseID int) ([]models.ExpenseShare, error)

	ListSharesByGroup(ctx context.Context, groupID int) ([]models.ExpenseShare, error)

	// Settle records a full or partial payment against a share and
	// returns the remaining amount owed. The owed amount itself never
	// changes once written; payments accumulate against it, and paying
	// it down to zero marks the share settled. A settled share returns
	// ErrAlreadySettled.
	Settle(ctx context.Context, shareID int, amount decimal.Decimal) (remaining decimal.Decimal, err error)
}
