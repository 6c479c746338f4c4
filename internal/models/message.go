package models

import "database/sql"

type GroupMessage struct {
	ID          int            `json:"id,omitempty" db:"id,omitempty"`
	GroupID     int            `json:"group_id,omitempty" db:"group_id,omitempty"`
	UserID      int            `json:"user_id,omitempty" db:"user_id,omitempty"`
	Message     string         `json:"message,omitempty" db:"message,omitempty"`
	MessageType string         `json:"message_type,omitempty" db:"message_type,omitempty"`
	ReplyToID   sql.NullInt64  `json:"reply_to_id,omitempty" db:"reply_to_id,omitempty"`
	CreatedAt   sql.NullString `json:"created_at,omitempty" db:"created_at,omitempty"`
}
