package memstore

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divvy/internal/models"
	"divvy/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateWithSharesIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()

	expense := models.Expense{GroupID: 1, PayerID: 1, Description: "dinner", Amount: dec("60")}
	badBatch := []models.ExpenseShare{
		{UserID: 1, AmountOwed: dec("70")},
		{UserID: 2, AmountOwed: dec("-10")},
	}

	_, err := s.CreateWithShares(ctx, expense, badBatch)
	require.ErrorIs(t, err, store.ErrInvalidShares)

	// Nothing may survive a failed batch: no orphan expense, no shares.
	expenses, err := s.ListByGroup(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, expenses)
	shares, err := s.ListSharesByGroup(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestCreateListAndCascadeDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateWithShares(ctx,
		models.Expense{GroupID: 1, PayerID: 1, Description: "groceries", Amount: dec("30")},
		[]models.ExpenseShare{
			{UserID: 1, AmountOwed: dec("15"), ShareType: "equal"},
			{UserID: 2, AmountOwed: dec("15"), ShareType: "equal"},
		})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	shares, err := s.ListByExpense(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	for _, sh := range shares {
		assert.Equal(t, created.ID, sh.ExpenseID)
	}

	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	shares, err = s.ListSharesByGroup(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, shares, "shares must cascade with the expense")
}

func TestSettle(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateWithShares(ctx,
		models.Expense{GroupID: 1, PayerID: 1, Amount: dec("40")},
		[]models.ExpenseShare{{UserID: 2, AmountOwed: dec("20"), ShareType: "equal"}})
	require.NoError(t, err)

	shares, err := s.ListByExpense(ctx, created.ID)
	require.NoError(t, err)
	shareID := shares[0].ID

	remaining, err := s.Settle(ctx, shareID, dec("5"))
	require.NoError(t, err)
	assert.True(t, remaining.Equal(dec("15")))

	// Payments accumulate; the owed amount never moves.
	sh, err := s.GetShare(ctx, shareID)
	require.NoError(t, err)
	assert.True(t, sh.AmountOwed.Equal(dec("20")))
	assert.True(t, sh.AmountPaid.Equal(dec("5")))
	assert.False(t, sh.IsSettled)

	remaining, err = s.Settle(ctx, shareID, dec("15"))
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())

	sh, err = s.GetShare(ctx, shareID)
	require.NoError(t, err)
	assert.True(t, sh.AmountOwed.Equal(dec("20")))
	assert.True(t, sh.AmountPaid.Equal(dec("20")))
	assert.True(t, sh.IsSettled)

	// A settled share cannot be paid again.
	_, err = s.Settle(ctx, shareID, dec("1"))
	assert.ErrorIs(t, err, store.ErrAlreadySettled)

	// A missing share is still a plain not-found.
	_, err = s.Settle(ctx, 999, dec("1"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}
