package runner_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/provider"
	"github.com/petasbytes/go-assistant/internal/runner"
	"github.com/petasbytes/go-assistant/internal/store"
	"github.com/petasbytes/go-assistant/internal/telemetry"
	"github.com/petasbytes/go-assistant/memory"
	"github.com/petasbytes/go-assistant/tools"
)

func newLoggedLoop(t *testing.T, fake *fakeTransport) (*runner.Loop, *bytes.Buffer) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "runner.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	var buf bytes.Buffer
	logger := zerolog.New(zerolog.SyncWriter(&buf))
	exec := tools.NewExecutor(repo, memory.New(repo), logger, nil)
	loop := runner.New(provider.NewAnthropicClient(clientConfig(fake)), exec, repo, logger)
	return loop, &buf
}

func events(t *testing.T, buf *bytes.Buffer, name string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON log line: %v: %s", err, sc.Text())
		}
		if m["event"] == name {
			out = append(out, m)
		}
	}
	return out
}

func TestLoop_ToolExecEvents(t *testing.T) {
	resp := `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
		"content": [
			{"type": "tool_use", "id": "t1", "name": "query_database", "input": {"sql": "select 1 as one"}},
			{"type": "tool_use", "id": "t2", "name": "memory", "input": {"command": "view", "path": "/memories"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 5, "output_tokens": 5}
	}`
	fake := &fakeTransport{responses: []string{resp, textResponse("done", 1, 1)}}
	loop, buf := newLoggedLoop(t, fake)

	ctx := telemetry.WithTurnID(context.Background(), "turn-fixed")
	if _, err := loop.Run(ctx, hello, "dm:D9"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	loop.Wait()

	execs := events(t, buf, "tool_exec")
	if len(execs) != 2 {
		t.Fatalf("expected 2 tool_exec events, got %d", len(execs))
	}
	for _, e := range execs {
		if e["turn_id"] != "turn-fixed" {
			t.Errorf("turn_id not propagated: %v", e["turn_id"])
		}
		if e["conversation_key"] != "dm:D9" {
			t.Errorf("conversation_key not propagated: %v", e["conversation_key"])
		}
		if v, ok := e["duration_ms"].(float64); !ok || v < 0 {
			t.Errorf("duration_ms should be >= 0, got %v", e["duration_ms"])
		}
		switch e["tool_name"] {
		case "query_database":
			if e["sql"] != "select 1 as one" {
				t.Errorf("sql should be logged verbatim, got %v", e["sql"])
			}
		case "memory":
			if s, _ := e["input"].(string); !strings.Contains(s, `"command":"view"`) {
				t.Errorf("input should be a compact dump, got %v", e["input"])
			}
		default:
			t.Errorf("unexpected tool_name %v", e["tool_name"])
		}
	}

	rounds := events(t, buf, "round_completed")
	if len(rounds) != 2 || rounds[0]["turn_id"] != "turn-fixed" {
		t.Fatalf("unexpected round_completed events: %v", rounds)
	}
	if fin := events(t, buf, "loop_finished"); len(fin) != 1 || fin[0]["outcome"] != "reply" {
		t.Fatalf("unexpected loop_finished events: %v", fin)
	}
}

func TestLoop_ToolExecResultTruncated(t *testing.T) {
	long := strings.Repeat("x", 800)
	resp := `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
		"content": [
			{"type": "tool_use", "id": "t1", "name": "memory", "input": {"command": "create", "path": "/memories/long.md", "file_text": "` + long + `"}},
			{"type": "tool_use", "id": "t2", "name": "nope", "input": {}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 5, "output_tokens": 5}
	}`
	view := `{
		"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-sonnet-4-20250514",
		"content": [{"type": "tool_use", "id": "t3", "name": "memory", "input": {"command": "view", "path": "/memories/long.md"}}],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 5, "output_tokens": 5}
	}`
	fake := &fakeTransport{responses: []string{resp, view, textResponse("done", 1, 1)}}
	loop, buf := newLoggedLoop(t, fake)

	if _, err := loop.Run(context.Background(), hello, ""); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var sawUnknown, sawTruncated bool
	for _, e := range events(t, buf, "tool_exec") {
		res, _ := e["result"].(string)
		if e["tool_name"] == "nope" && e["error"] == "Unknown tool: nope" {
			sawUnknown = true
		}
		if strings.HasSuffix(res, "...") && len([]rune(res)) == 503 {
			sawTruncated = true
		}
	}
	if !sawUnknown {
		t.Errorf("expected unknown tool error event")
	}
	if !sawTruncated {
		t.Errorf("expected a truncated result in the log")
	}
}
