package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/api"
	"github.com/petasbytes/go-assistant/internal/chat"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/scheduler"
	"github.com/petasbytes/go-assistant/internal/store"
)

type fakeChat struct {
	key, text string
	reply     string
	err       error
}

func (f *fakeChat) Reply(ctx context.Context, key, text string) (string, error) {
	f.key, f.text = key, text
	if strings.TrimSpace(text) == "" {
		return "", chat.ErrEmptyMessage
	}
	return f.reply, f.err
}

type server struct {
	srv   *httptest.Server
	chat  *fakeChat
	repo  *store.SQLiteStore
	sched *scheduler.Scheduler
	m     *metrics.Metrics
}

func newServer(t *testing.T) *server {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sched := scheduler.New(scheduler.NewTracker(repo, "test-agent", zerolog.Nop()), zerolog.Nop(), m)
	err = sched.Register(scheduler.Task{
		Name:        "echo",
		Schedule:    "@daily",
		Description: "Echoes its trigger source",
		Handler: func(ctx context.Context, tc *scheduler.TaskContext) (string, error) {
			return "echoed", nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	fc := &fakeChat{reply: "Noted."}
	h := api.NewHandler(fc, sched, repo, zerolog.Nop(), m)
	srv := httptest.NewServer(h.Routes(reg))
	t.Cleanup(srv.Close)
	return &server{srv: srv, chat: fc, repo: repo, sched: sched, m: m}
}

func (s *server) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp, out
}

func TestPostMessage(t *testing.T) {
	s := newServer(t)

	resp, out := s.do(t, http.MethodPost, "/v1/conversations/dm:D1/messages", `{"text":"remember the demo"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["reply"] != "Noted." || out["conversation_key"] != "dm:D1" {
		t.Fatalf("unexpected body: %v", out)
	}
	if s.chat.key != "dm:D1" || s.chat.text != "remember the demo" {
		t.Fatalf("chat got key=%q text=%q", s.chat.key, s.chat.text)
	}
}

func TestPostMessage_BadRequests(t *testing.T) {
	s := newServer(t)

	if resp, _ := s.do(t, http.MethodPost, "/v1/conversations/dm:D1/messages", `{not json`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", resp.StatusCode)
	}
	resp, out := s.do(t, http.MethodPost, "/v1/conversations/dm:D1/messages", `{"text":"   "}`)
	if resp.StatusCode != http.StatusBadRequest || out["error"] == nil {
		t.Fatalf("empty message: %d %v", resp.StatusCode, out)
	}
}

func TestPostMessage_ReplyFailureKeepsApology(t *testing.T) {
	s := newServer(t)
	s.chat.reply = chat.ApologyText
	s.chat.err = errors.New("model call (round 1): 529 overloaded")

	resp, out := s.do(t, http.MethodPost, "/v1/conversations/dm:D1/messages", `{"text":"hi"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["reply"] != chat.ApologyText {
		t.Fatalf("apology not returned: %v", out)
	}
	if strings.Contains(out["error"].(string), "overloaded") {
		t.Fatalf("internal error leaked: %v", out["error"])
	}
}

func TestTasks_ListAndRun(t *testing.T) {
	s := newServer(t)

	resp, out := s.do(t, http.MethodGet, "/v1/tasks", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	list := out["tasks"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["name"] != "echo" {
		t.Fatalf("unexpected tasks: %v", out)
	}

	resp, out = s.do(t, http.MethodPost, "/v1/tasks/echo/run", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	if out["status"] != "completed" || out["result_summary"] != "echoed" {
		t.Fatalf("unexpected run: %v", out)
	}
	meta, _ := out["metadata"].(map[string]any)
	if meta["manual"] != true || meta["source"] != "api" {
		t.Fatalf("unexpected metadata: %v", out["metadata"])
	}

	resp, out = s.do(t, http.MethodGet, "/v1/tasks/runs?task=echo&limit=5", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("runs status = %d", resp.StatusCode)
	}
	if runs := out["runs"].([]any); len(runs) != 1 {
		t.Fatalf("unexpected runs: %v", out)
	}
}

func TestTasks_Errors(t *testing.T) {
	s := newServer(t)

	if resp, _ := s.do(t, http.MethodPost, "/v1/tasks/missing/run", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown task status = %d", resp.StatusCode)
	}
	if resp, _ := s.do(t, http.MethodGet, "/v1/tasks/runs?limit=zero", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	resp, out := s.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("healthy: %d %v", resp.StatusCode, out)
	}

	_ = s.repo.Close()
	resp, out = s.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable || out["status"] != "unavailable" {
		t.Fatalf("closed store: %d %v", resp.StatusCode, out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodGet, "/v1/tasks", "")

	if got := testutil.ToFloat64(s.m.HTTPRequestsTotal.WithLabelValues("/v1/tasks", "200")); got != 1 {
		t.Fatalf("http request counter = %v", got)
	}

	resp, err := http.Get(s.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(body), "assistant_http_requests_total") {
		t.Fatalf("metrics output missing http counter:\n%s", body)
	}
}
