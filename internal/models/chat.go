package models

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat. Messages are immutable once written;
// ID ordering matches insertion order. Sources is set only on
// assistant messages and lists the chunk ids cited by the answer.
type Message struct {
	ID         int64       `json:"id" db:"id"`
	ChatID     uuid.UUID   `json:"chat_id" db:"chat_id"`
	Role       string      `json:"role" db:"role"`
	Content    string      `json:"content" db:"content"`
	TokenCount int         `json:"token_count" db:"token_count"`
	Sources    []uuid.UUID `json:"sources,omitempty" db:"sources"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}
