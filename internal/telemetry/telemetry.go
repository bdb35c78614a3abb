package telemetry

import (
	"context"

	"github.com/rs/zerolog"
)

// Emit writes a single structured event line through logger.
// The event name goes in the "event" field; turn_id is added from ctx when present
// and not already in fields.
func Emit(ctx context.Context, logger zerolog.Logger, name string, fields map[string]any) {
	ev := logger.Info()
	if !ev.Enabled() {
		return
	}
	if _, ok := fields["turn_id"]; !ok {
		if turnID, ok := TurnIDFromContext(ctx); ok {
			ev = ev.Str("turn_id", turnID)
		}
	}
	if _, ok := fields["conversation_key"]; !ok {
		if key, ok := ConversationKeyFromContext(ctx); ok {
			ev = ev.Str("conversation_key", key)
		}
	}
	ev.Fields(fields).Str("event", name).Send()
}
