package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/gradbot/internal/models"
)

// Store persists chats and their messages. RecentMessages and
// RecentUserMessages return newest-first; callers reverse for
// chronological order.
type Store interface {
	// GetOrCreate resolves the user's single chat, creating it when
	// absent. Concurrent calls for one user resolve to the same row.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Chat, error)
	// Find returns nil without error when the user has no chat.
	Find(ctx context.Context, userID uuid.UUID) (*models.Chat, error)
	// Delete removes a chat and, by cascade, its messages.
	Delete(ctx context.Context, chatID uuid.UUID) error
	RecentMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error)
	RecentUserMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error)
	// AppendTurn writes the question and answer messages atomically:
	// either both rows land or neither does.
	AppendTurn(ctx context.Context, userMsg, assistantMsg *models.Message) error
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	// The no-op update makes ON CONFLICT return the existing row, so
	// create-if-absent is a single atomic statement under the unique
	// user_id constraint.
	err := s.db.QueryRow(ctx,
		`INSERT INTO chats (id, user_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id, user_id, created_at`,
		uuid.New(), userID,
	).Scan(&chat.ID, &chat.UserID, &chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create chat: %w", err)
	}
	return &chat, nil
}

func (s *PgStore) Find(ctx context.Context, userID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.QueryRow(ctx,
		"SELECT id, user_id, created_at FROM chats WHERE user_id = $1",
		userID,
	).Scan(&chat.ID, &chat.UserID, &chat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	return &chat, nil
}

func (s *PgStore) Delete(ctx context.Context, chatID uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM chats WHERE id = $1", chatID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

func (s *PgStore) RecentMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	return s.recentMessages(ctx, chatID, limit, "")
}

func (s *PgStore) RecentUserMessages(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error) {
	return s.recentMessages(ctx, chatID, limit, models.RoleUser)
}

func (s *PgStore) recentMessages(ctx context.Context, chatID uuid.UUID, limit int, role string) ([]models.Message, error) {
	query := `SELECT id, chat_id, role, content, token_count, sources, created_at
	          FROM chat_messages WHERE chat_id = $1`
	args := []interface{}{chatID}
	if role != "" {
		query += " AND role = $2"
		args = append(args, role)
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %d", limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var sources []string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.TokenCount, &sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		for _, src := range sources {
			id, err := uuid.Parse(src)
			if err != nil {
				continue
			}
			m.Sources = append(m.Sources, id)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *PgStore) AppendTurn(ctx context.Context, userMsg, assistantMsg *models.Message) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range []*models.Message{userMsg, assistantMsg} {
		sources := make([]string, len(m.Sources))
		for i, id := range m.Sources {
			sources[i] = id.String()
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO chat_messages (chat_id, role, content, token_count, sources)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			m.ChatID, m.Role, m.Content, m.TokenCount, sources,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert %s message: %w", m.Role, err)
		}
	}

	return tx.Commit(ctx)
}
