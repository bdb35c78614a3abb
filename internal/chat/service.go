// Package chat answers inbound messages: it keeps the conversation history and
// runs the conversation loop keyed by conversation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/history"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/telemetry"
)

// ApologyText is the reply sent when a turn cannot be answered.
const ApologyText = "I apologize. I seem to have encountered a technical difficulty. Perhaps we might try again?"

var ErrEmptyMessage = errors.New("message is required")

// History stores and loads conversation turns.
type History interface {
	Append(ctx context.Context, key, role, content string) error
	Load(ctx context.Context, key string) ([]history.Message, error)
}

// Conversation runs the model exchange for one turn.
type Conversation interface {
	Run(ctx context.Context, msgs []history.Message, conversationKey string) (string, error)
}

type Service struct {
	history History
	convo   Conversation
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New returns a Service. m may be nil.
func New(h History, convo Conversation, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		history: h,
		convo:   convo,
		logger:  logger.With().Str("component", "chat").Logger(),
		metrics: m,
	}
}

// Reply records text as the user's turn in conversation key and returns the assistant's answer.
// The returned string is always fit to show the user: on failure it is ApologyText and err says why.
func (s *Service) Reply(ctx context.Context, key, text string) (string, error) {
	text = strings.TrimSpace(text)
	if key == "" {
		return ApologyText, errors.New("conversation key is required")
	}
	if text == "" {
		return ApologyText, ErrEmptyMessage
	}

	ctx = telemetry.WithConversationKey(ctx, key)
	ctx, _ = telemetry.EnsureTurnID(ctx)
	s.metrics.ObserveMessage(domain.RoleUser, text)
	telemetry.EmitLocalFeatures(ctx, s.logger, text)

	if err := s.history.Append(ctx, key, domain.RoleUser, text); err != nil {
		return ApologyText, err
	}
	msgs, err := s.history.Load(ctx, key)
	if err != nil {
		return ApologyText, err
	}

	reply, err := s.convo.Run(ctx, msgs, key)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_key", key).Msg("conversation failed")
		return ApologyText, fmt.Errorf("reply: %w", err)
	}

	s.metrics.ObserveMessage(domain.RoleAssistant, reply)
	if err := s.history.Append(ctx, key, domain.RoleAssistant, reply); err != nil {
		// The user still gets the answer; only the history entry is lost.
		s.logger.Warn().Err(err).Str("conversation_key", key).Msg("store assistant reply")
	}
	return reply, nil
}
