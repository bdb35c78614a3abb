package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// AddMessage appends a chat message and fills in its ID and CreatedAt.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *domain.Message) error {
	now := s.now()
	var agentID sql.NullString
	if msg.AgentID != "" {
		agentID = sql.NullString{String: msg.AgentID, Valid: true}
	}
	query := `
	INSERT INTO messages (conversation_key, role, content, agent_id, created_at)
	VALUES (?, ?, ?, ?, ?)`

	var res sql.Result
	err := withRetry(ctx, s.logger, "add_message", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, msg.ConversationKey, msg.Role, msg.Content, agentID, millis(now))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = fromMillis(millis(now))
	return nil
}

// RecentMessages returns the latest limit messages for key in chronological order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, key string, limit int) ([]domain.Message, error) {
	query := `
	SELECT id, conversation_key, role, content, agent_id, created_at
	FROM messages WHERE conversation_key = ?
	ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var agentID sql.NullString
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.Role, &m.Content, &agentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.AgentID = agentID.String
		m.CreatedAt = fromMillis(createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; callers want oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// HasMessages reports whether any message exists for key.
func (s *SQLiteStore) HasMessages(ctx context.Context, key string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE conversation_key = ?)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check messages: %w", err)
	}
	return exists == 1, nil
}
