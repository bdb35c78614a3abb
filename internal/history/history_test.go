package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/history"
	"github.com/petasbytes/go-assistant/internal/store"
)

func newHistory(t *testing.T) (*history.Store, *store.SQLiteStore) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return history.New(repo, "assistant"), repo
}

func TestHistory_RoundTrip(t *testing.T) {
	h, _ := newHistory(t)
	ctx := context.Background()

	if err := h.Append(ctx, "dm:C1", "user", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := h.Append(ctx, "dm:C1", "assistant", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := h.Load(ctx, "dm:C1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []history.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestHistory_BoundedToLatest(t *testing.T) {
	h, _ := newHistory(t)
	ctx := context.Background()

	total := history.MaxMessages + 5
	for i := 0; i < total; i++ {
		if err := h.Append(ctx, "t1", "user", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := h.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != history.MaxMessages {
		t.Fatalf("want %d messages, got %d", history.MaxMessages, len(got))
	}
	if got[0].Content != "m5" || got[len(got)-1].Content != fmt.Sprintf("m%d", total-1) {
		t.Fatalf("want oldest-first window m5..m%d, got %q..%q", total-1, got[0].Content, got[len(got)-1].Content)
	}
}

func TestHistory_AssistantTaggedWithAgentID(t *testing.T) {
	h, repo := newHistory(t)
	ctx := context.Background()
	_ = h.Append(ctx, "k", "user", "q")
	_ = h.Append(ctx, "k", "assistant", "a")

	rows, err := repo.RecentMessages(ctx, "k", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if rows[0].AgentID != "" || rows[1].AgentID != "assistant" {
		t.Fatalf("unexpected agent ids: %+v", rows)
	}
}

func TestHistory_InvalidRole(t *testing.T) {
	h, _ := newHistory(t)
	if err := h.Append(context.Background(), "k", "system", "x"); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestHistory_LoadMissing_ReturnsEmpty(t *testing.T) {
	h, _ := newHistory(t)
	got, err := h.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no messages, got %#v", got)
	}
	ok, err := h.Has(context.Background(), "nobody")
	if err != nil || ok {
		t.Fatalf("has: %v %v", ok, err)
	}
}

func TestConversationKey(t *testing.T) {
	cases := []struct {
		thread, channel string
		dm              bool
		want            string
	}{
		{"", "D123", true, "dm:D123"},
		{"1700000000.0001", "D123", true, "dm:D123"},
		{"1700000000.0001", "C9", false, "1700000000.0001"},
		{"", "C9", false, "channel:C9"},
	}
	for _, tc := range cases {
		if got := history.ConversationKey(tc.thread, tc.channel, tc.dm); got != tc.want {
			t.Fatalf("ConversationKey(%q,%q,%v) = %q want %q", tc.thread, tc.channel, tc.dm, got, tc.want)
		}
	}
}
