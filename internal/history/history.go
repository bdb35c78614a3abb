// Package history keeps per-conversation chat history.
//
// Persistence model:
//   - Only text messages are stored (role + content). Tool blocks are transient.
//   - Loads are bounded to the most recent MaxMessages entries, oldest first.
package history

import (
	"context"
	"fmt"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// MaxMessages bounds how many past messages are sent to the model.
const MaxMessages = 20

// Message is a minimal view of a chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Repository is the persistence history needs.
type Repository interface {
	AddMessage(ctx context.Context, msg *domain.Message) error
	RecentMessages(ctx context.Context, key string, limit int) ([]domain.Message, error)
	HasMessages(ctx context.Context, key string) (bool, error)
}

// Store reads and appends conversation history keyed by conversation key.
type Store struct {
	repo    Repository
	agentID string
	limit   int
}

// New returns a Store. Assistant messages are tagged with agentID.
func New(repo Repository, agentID string) *Store {
	return &Store{repo: repo, agentID: agentID, limit: MaxMessages}
}

// Append stores one message.
func (s *Store) Append(ctx context.Context, key, role, content string) error {
	if role != domain.RoleUser && role != domain.RoleAssistant {
		return fmt.Errorf("append message: invalid role %q", role)
	}
	msg := &domain.Message{ConversationKey: key, Role: role, Content: content}
	if role == domain.RoleAssistant {
		msg.AgentID = s.agentID
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Load returns the most recent messages for key, oldest first.
func (s *Store) Load(ctx context.Context, key string) ([]Message, error) {
	rows, err := s.repo.RecentMessages(ctx, key, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, Message{Role: r.Role, Content: r.Content})
	}
	return out, nil
}

// Has reports whether key has any stored messages.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	return s.repo.HasMessages(ctx, key)
}

// ConversationKey derives the key a chat surface message belongs to:
// "dm:<channel>" for direct messages, the thread timestamp for threads,
// and "channel:<channel>" for top-level channel messages.
func ConversationKey(threadTS, channel string, isDM bool) string {
	if isDM {
		return "dm:" + channel
	}
	if threadTS != "" {
		return threadTS
	}
	return "channel:" + channel
}
