package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type PersonalCategory struct {
	ID        int            `json:"id,omitempty" db:"id,omitempty"`
	UserID    int            `json:"user_id,omitempty" db:"user_id,omitempty"`
	Name      string         `json:"name,omitempty" db:"name,omitempty"`
	Color     string         `json:"color,omitempty" db:"color,omitempty"`
	Icon      string         `json:"icon,omitempty" db:"icon,omitempty"`
	CreatedAt sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
}

type PersonalExpense struct {
	ID          int             `json:"id,omitempty" db:"id,omitempty"`
	UserID      int             `json:"user_id,omitempty" db:"user_id,omitempty"`
	CategoryID  int             `json:"category_id,omitempty" db:"category_id,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty" db:"amount,omitempty"`
	Description string          `json:"description,omitempty" db:"description,omitempty"`
	Date        string          `json:"date,omitempty" db:"date,omitempty"`
	CreatedAt   sql.NullString  `json:"created_at,omitempty" db:"created_at,omitempty"`
}
