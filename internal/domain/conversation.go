package domain

import "time"

// Roles of a persisted chat message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one persisted chat turn. Only text is stored; tool blocks are transient.
type Message struct {
	ID              int64     `json:"id"`
	ConversationKey string    `json:"conversation_key"`
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	AgentID         string    `json:"agent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// MemoryFile is a path-addressed text file in the memory namespace.
type MemoryFile struct {
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
