package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/petasbytes/go-assistant/internal/telemetry"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmit_WritesEventWithContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger(telemetry.Config{Level: "info", Output: &buf, Service: "test"})

	ctx := telemetry.WithTurnID(context.Background(), "turn-1")
	ctx = telemetry.WithConversationKey(ctx, "dm:C1")
	telemetry.Emit(ctx, logger, "tool_exec", map[string]any{"tool_name": "memory", "duration_ms": 3})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("want 1 line, got %d", len(lines))
	}
	m := lines[0]
	if m["event"] != "tool_exec" || m["tool_name"] != "memory" || m["service"] != "test" {
		t.Fatalf("unexpected event: %+v", m)
	}
	if m["turn_id"] != "turn-1" || m["conversation_key"] != "dm:C1" {
		t.Fatalf("context ids missing: %+v", m)
	}
	if _, ok := m["time"]; !ok {
		t.Fatalf("timestamp missing: %+v", m)
	}
}

func TestEmit_ExplicitTurnIDWins(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger(telemetry.Config{Output: &buf})

	ctx := telemetry.WithTurnID(context.Background(), "from-ctx")
	telemetry.Emit(ctx, logger, "x", map[string]any{"turn_id": "explicit"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["turn_id"] != "explicit" {
		t.Fatalf("unexpected: %+v", lines)
	}
	if strings.Count(buf.String(), "turn_id") != 1 {
		t.Fatalf("turn_id written twice: %s", buf.String())
	}
}

func TestEmit_SuppressedBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger(telemetry.Config{Level: "error", Output: &buf})
	telemetry.Emit(context.Background(), logger, "quiet", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"WARN", false, false},
		{"bogus", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := telemetry.NewLogger(telemetry.Config{Level: tt.level, Output: &buf})
			logger.Debug().Msg("d")
			logger.Info().Msg("i")
			out := buf.String()
			if got := strings.Contains(out, `"message":"d"`); got != tt.wantDebug {
				t.Fatalf("debug emitted=%v want %v: %s", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, `"message":"i"`); got != tt.wantInfo {
				t.Fatalf("info emitted=%v want %v: %s", got, tt.wantInfo, out)
			}
		})
	}
}

func TestEmitLocalFeatures_DebugOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger(telemetry.Config{Level: "info", Output: &buf})
	telemetry.EmitLocalFeatures(context.Background(), logger, "hello world")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing at info level, got %q", buf.String())
	}

	buf.Reset()
	logger = telemetry.NewLogger(telemetry.Config{Level: "debug", Output: &buf})
	telemetry.EmitLocalFeatures(context.Background(), logger, "hello world\nbye")
	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("want 1 line, got %d", len(lines))
	}
	m := lines[0]
	if m["event"] != "local_features" || m["words"] != float64(3) || m["lines"] != float64(2) {
		t.Fatalf("unexpected features: %+v", m)
	}
}
