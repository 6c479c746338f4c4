package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type ExpenseShare struct {
	ID               int                 `json:"id,omitempty" db:"id,omitempty"`
	ExpenseID        int                 `json:"expense_id,omitempty" db:"expense_id,omitempty"`
	UserID           int                 `json:"user_id,omitempty" db:"user_id,omitempty"`
	AmountOwed       decimal.Decimal     `json:"amount_owed,omitempty" db:"amount_owed,omitempty"`
	AmountPaid       decimal.Decimal     `json:"amount_paid" db:"amount_paid"`
	ShareType        string              `json:"share_type,omitempty" db:"share_type,omitempty"`
	CustomPercentage decimal.NullDecimal `json:"custom_percentage,omitempty" db:"custom_percentage,omitempty"`
	CustomAmount     decimal.NullDecimal `json:"custom_amount,omitempty" db:"custom_amount,omitempty"`
	IsSettled        bool                `json:"is_settled,omitempty" db:"is_settled,omitempty"`
	CreatedAt        sql.NullString      `json:"created_at,omitempty" db:"created_at,omitempty"`
}
