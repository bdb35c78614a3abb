package telemetry

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/metrics"
)

// EmitLocalFeatures logs cheap size features of an inbound message at debug level.
func EmitLocalFeatures(ctx context.Context, logger zerolog.Logger, text string) {
	ev := logger.Debug()
	if !ev.Enabled() {
		return
	}
	f := metrics.CountFeatures(text)
	ev = ev.Str("event", "local_features").
		Str("features_version", "2").
		Int("bytes", f.Bytes).
		Int("runes", f.Runes).
		Int("words", f.Words).
		Int("lines", f.Lines)
	if turnID, ok := TurnIDFromContext(ctx); ok {
		ev = ev.Str("turn_id", turnID)
	}
	ev.Send()
}
