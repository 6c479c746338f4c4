package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          int             `json:"id,omitempty" db:"id,omitempty"`
	GroupID     int             `json:"group_id,omitempty" db:"group_id,omitempty"`
	PayerID     int             `json:"payer_id,omitempty" db:"payer_id,omitempty"`
	Description string          `json:"description,omitempty" db:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty" db:"amount,omitempty"`
	Date        string          `json:"date,omitempty" db:"date,omitempty"`
	CreatedAt   sql.NullString  `json:"created_at,omitempty" db:"created_at,omitempty"`
}
