// Package mysqlstore implements the store contracts on MySQL/MariaDB.
package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"divvy/internal/models"
	"divvy/internal/split"
	"divvy/internal/store"
)

var (
	_ store.MemberDirectory = (*Store)(nil)
	_ store.ExpenseStore    = (*Store)(nil)
	_ store.ShareStore      = (*Store)(nil)
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GroupMembers(ctx context.Context, groupID int) ([]split.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.user_id, u.username
		FROM group_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = ?
		ORDER BY m.joined_at, m.user_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group members: %w", err)
	}
	defer rows.Close()

	var members []split.Member
	for rows.Next() {
		var m split.Member
		if err := rows.Scan(&m.UserID, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) CreateWithShares(ctx context.Context, expense models.Expense, shares []models.ExpenseShare) (models.Expense, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to start transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO expenses (group_id, payer_id, description, amount, date, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		expense.GroupID, expense.PayerID, expense.Description, expense.Amount, expense.Date,
		time.Now().Format("2006-01-02 15:04:05"))
	if err != nil {
		tx.Rollback()
		return models.Expense{}, fmt.Errorf("failed to create expense: %w", err)
	}

	expenseID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return models.Expense{}, fmt.Errorf("failed to get expense id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expense_shares (expense_id, user_id, amount_owed, amount_paid, share_type, custom_percentage, custom_amount, is_settled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return models.Expense{}, fmt.Errorf("failed to prepare share insert: %w", err)
	}
	defer stmt.Close()

	for _, share := range shares {
		if _, err := stmt.ExecContext(ctx, expenseID, share.UserID, share.AmountOwed, share.AmountPaid,
			share.ShareType, share.CustomPercentage, share.CustomAmount, share.IsSettled); err != nil {
			tx.Rollback()
			return models.Expense{}, fmt.Errorf("failed to insert expense share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return models.Expense{}, fmt.Errorf("failed to commit expense: %w", err)
	}

	expense.ID = int(expenseID)
	return expense, nil
}

func (s *Store) Get(ctx context.Context, id int) (models.Expense, error) {
	var e models.Expense
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, payer_id, description, amount, date, created_at FROM expenses WHERE id = ?", id).
		Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Description, &e.Amount, &e.Date, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Expense{}, store.ErrNotFound
	}
	if err != nil {
		return models.Expense{}, fmt.Errorf("failed to fetch expense: %w", err)
	}
	return e, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID int) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, payer_id, description, amount, date, created_at
		FROM expenses
		WHERE group_id = ?
		ORDER BY date DESC, id DESC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Description, &e.Amount, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetShare(ctx context.Context, id int) (models.ExpenseShare, error) {
	var sh models.ExpenseShare
	err := s.db.QueryRowContext(ctx, `
		SELECT id, expense_id, user_id, amount_owed, amount_paid, share_type, custom_percentage, custom_amount, is_settled, created_at
		FROM expense_shares WHERE id = ?
	`, id).Scan(&sh.ID, &sh.ExpenseID, &sh.UserID, &sh.AmountOwed, &sh.AmountPaid, &sh.ShareType,
		&sh.CustomPercentage, &sh.CustomAmount, &sh.IsSettled, &sh.CreatedAt)
	if err == sql.ErrNoRows {
		return models.ExpenseShare{}, store.ErrNotFound
	}
	if err != nil {
		return models.ExpenseShare{}, fmt.Errorf("failed to fetch expense share: %w", err)
	}
	return sh, nil
}

func (s *Store) ListByExpense(ctx context.Context, expenseID int) ([]models.ExpenseShare, error) {
	return s.listShares(ctx, "WHERE s.expense_id = ?", expenseID)
}

func (s *Store) ListSharesByGroup(ctx context.Context, groupID int) ([]models.ExpenseShare, error) {
	return s.listShares(ctx, "JOIN expenses e ON s.expense_id = e.id WHERE e.group_id = ?", groupID)
}

func (s *Store) listShares(ctx context.Context, clause string, arg any) ([]models.ExpenseShare, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.amount_owed, s.amount_paid, s.share_type, s.custom_percentage, s.custom_amount, s.is_settled, s.created_at
		FROM expense_shares s ` + clause
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expense shares: %w", err)
	}
	defer rows.Close()

	var shares []models.ExpenseShare
	for rows.Next() {
		var sh models.ExpenseShare
		if err := rows.Scan(&sh.ID, &sh.ExpenseID, &sh.UserID, &sh.AmountOwed, &sh.AmountPaid, &sh.ShareType,
			&sh.CustomPercentage, &sh.CustomAmount, &sh.IsSettled, &sh.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

func (s *Store) Settle(ctx context.Context, shareID int, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to start transaction: %w", err)
	}

	var owed, paid decimal.Decimal
	var settled bool
	err = tx.QueryRowContext(ctx,
		"SELECT amount_owed, amount_paid, is_settled FROM expense_shares WHERE id = ? FOR UPDATE", shareID).
		Scan(&owed, &paid, &settled)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return decimal.Zero, store.ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return decimal.Zero, fmt.Errorf("failed to fetch share for settlement: %w", err)
	}
	if settled {
		tx.Rollback()
		return decimal.Zero, store.ErrAlreadySettled
	}

	// amount_owed is immutable once written; only the paid total moves.
	paid = paid.Add(amount)
	if paid.GreaterThan(owed) {
		paid = owed
	}
	remaining := owed.Sub(paid)

	_, err = tx.ExecContext(ctx,
		"UPDATE expense_shares SET amount_paid = ?, is_settled = ? WHERE id = ?",
		paid, remaining.IsZero(), shareID)
	if err != nil {
		tx.Rollback()
		return decimal.Zero, fmt.Errorf("failed to settle share: %w", err)
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return decimal.Zero, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return remaining, nil
}
