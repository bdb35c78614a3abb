package safety_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/petasbytes/go-assistant/internal/safety"
)

func TestValidateMemoryPath_Accepts(t *testing.T) {
	for _, p := range []string{"/memories", "/memories/", "/memories/notes.md", "/memories/a/b/c.txt"} {
		got, err := safety.ValidateMemoryPath(p)
		if err != nil {
			t.Fatalf("unexpected err for %q: %v", p, err)
		}
		if got != p {
			t.Fatalf("want %q unchanged, got %q", p, got)
		}
	}
}

func TestValidateMemoryPath_Rejections(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"no prefix", "/etc/passwd"},
		{"relative", "memories/x"},
		{"traversal", "/memories/../etc/passwd"},
		{"dotdot inside name", "/memories/a..b"},
		{"sibling root", "/memoriesX/secret.md"},
		{"sibling name", "/memories_evil"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := safety.ValidateMemoryPath(tc.path)
			if err == nil {
				t.Fatalf("expected reject for %q", tc.path)
			}
			var te safety.ToolError
			if !errors.As(err, &te) || te.Code != "ERR_INVALID_MEMORY_PATH" {
				t.Fatalf("want ToolError ERR_INVALID_MEMORY_PATH, got %v", err)
			}
		})
	}
}

func TestToolError_CompactJSON(t *testing.T) {
	err := safety.ToolError{Code: "ERR_X", Message: "boom"}
	got := err.Error()
	if got != `{"code":"ERR_X","message":"boom"}` {
		t.Fatalf("unexpected body: %s", got)
	}
	if strings.Contains(got, "\n") {
		t.Fatal("error body must be single-line")
	}
}
