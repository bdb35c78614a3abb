package tools_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/store"
	"github.com/petasbytes/go-assistant/memory"
	"github.com/petasbytes/go-assistant/tools"
)

func newExecutor(t *testing.T) (*tools.Executor, *store.SQLiteStore) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "tools.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.CreateProject(context.Background(), &domain.Project{Slug: "assistant", Title: "Assistant"}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return tools.NewExecutor(repo, memory.New(repo), zerolog.Nop(), nil), repo
}

func run(t *testing.T, e *tools.Executor, name string, in any) string {
	t.Helper()
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	return e.Execute(context.Background(), name, b)
}

func wantError(t *testing.T, out, substr string) {
	t.Helper()
	if !tools.IsErrorResult(out) {
		t.Fatalf("expected error result, got %s", out)
	}
	if msg := gjson.Get(out, "error").String(); !strings.Contains(msg, substr) {
		t.Fatalf("error %q does not contain %q", msg, substr)
	}
}

func addItem(t *testing.T, e *tools.Executor) int64 {
	t.Helper()
	out := run(t, e, "add_work_item", tools.AddWorkItemInput{ProjectSlug: "assistant", Summary: "Add login", Tags: []string{"feature"}})
	if tools.IsErrorResult(out) {
		t.Fatalf("add_work_item: %s", out)
	}
	return gjson.Get(out, "item.id").Int()
}

func TestQueryDatabase_Select(t *testing.T) {
	e, _ := newExecutor(t)
	out := run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "  select 1 as one;; "})
	if got := gjson.Get(out, "rows.0.one").Int(); got != 1 {
		t.Fatalf("unexpected result: %s", out)
	}
}

func TestQueryDatabase_RejectsNonSelect(t *testing.T) {
	e, repo := newExecutor(t)
	out := run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "DROP TABLE works"})
	if out != `{"error":"Only SELECT queries are allowed"}` {
		t.Fatalf("unexpected result: %s", out)
	}
	if _, err := repo.PendingWork(context.Background(), 0); err != nil {
		t.Fatalf("works table should survive: %v", err)
	}
}

func TestQueryDatabase_EmptyAndFailed(t *testing.T) {
	e, _ := newExecutor(t)
	wantError(t, run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "  ;"}), "sql is required")
	wantError(t, run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "SELECT * FROM nope"}), "Query failed:")
}

func TestQueryDatabase_SelectCannotWrite(t *testing.T) {
	e, _ := newExecutor(t)
	run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "select 1; delete from projects"})

	out := run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "select count(*) as n from projects"})
	if gjson.Get(out, "rows.0.n").Int() != 1 {
		t.Fatalf("projects modified through query_database: %s", out)
	}
}

func TestAddWorkItem(t *testing.T) {
	e, _ := newExecutor(t)
	out := run(t, e, "add_work_item", tools.AddWorkItemInput{ProjectSlug: "assistant", Summary: "Add login", Tags: []string{"feature", "ui"}})
	if !gjson.Get(out, "success").Bool() {
		t.Fatalf("unexpected result: %s", out)
	}
	if gjson.Get(out, "item.status").String() != string(domain.WorkPending) {
		t.Fatalf("expected pending item: %s", out)
	}
	if !gjson.Get(out, "style_reference").IsArray() {
		t.Fatalf("expected style_reference array: %s", out)
	}
	if gjson.Get(out, "note").String() == "" {
		t.Fatalf("expected note: %s", out)
	}
}

func TestAddWorkItem_StyleReference(t *testing.T) {
	e, _ := newExecutor(t)
	id := addItem(t, e)
	run(t, e, "complete_work_item", map[string]any{"work_id": id})

	out := run(t, e, "add_work_item", tools.AddWorkItemInput{ProjectSlug: "assistant", Summary: "Add logout", Tags: []string{}})
	refs := gjson.Get(out, "style_reference").Array()
	if len(refs) != 1 || refs[0].String() != "Add login" {
		t.Fatalf("unexpected style_reference: %s", out)
	}
}

func TestAddWorkItem_Errors(t *testing.T) {
	e, _ := newExecutor(t)
	wantError(t, run(t, e, "add_work_item", tools.AddWorkItemInput{ProjectSlug: "nope", Summary: "x", Tags: []string{"a"}}), `Project "nope" not found`)
	wantError(t, run(t, e, "add_work_item", map[string]any{"project_slug": "assistant", "summary": "x"}), "required")
}

func TestCompleteWorkItem(t *testing.T) {
	e, _ := newExecutor(t)
	id := addItem(t, e)

	out := run(t, e, "complete_work_item", map[string]any{"work_id": id, "completed_summary": "Added login"})
	if gjson.Get(out, "item.status").String() != string(domain.WorkCompleted) {
		t.Fatalf("unexpected result: %s", out)
	}
	if gjson.Get(out, "item.completed_summary").String() != "Added login" {
		t.Fatalf("completed_summary not stored: %s", out)
	}
	wantError(t, run(t, e, "complete_work_item", map[string]any{"work_id": 999}), "Work item 999 not found")
}

func TestUpdateWorkItem(t *testing.T) {
	e, _ := newExecutor(t)
	id := addItem(t, e)

	out := run(t, e, "update_work_item", map[string]any{"work_id": id, "tags": []string{"bug"}})
	if gjson.Get(out, "item.tags.0").String() != "bug" || gjson.Get(out, "item.summary").String() != "Add login" {
		t.Fatalf("unexpected result: %s", out)
	}
	wantError(t, run(t, e, "update_work_item", map[string]any{"work_id": id}), "At least one of summary or tags is required")
}

func TestDeleteWorkItem(t *testing.T) {
	e, repo := newExecutor(t)
	id := addItem(t, e)

	out := run(t, e, "delete_work_item", map[string]any{"work_id": id})
	if gjson.Get(out, "message").String() == "" || !gjson.Get(out, "success").Bool() {
		t.Fatalf("unexpected result: %s", out)
	}
	if w, _ := repo.GetWorkItem(context.Background(), id); w != nil {
		t.Fatalf("item still present")
	}
}

func TestDeleteWorkItem_InProgressRefused(t *testing.T) {
	e, repo := newExecutor(t)
	id := addItem(t, e)
	if _, err := repo.StartWorkItem(context.Background(), id); err != nil {
		t.Fatalf("start: %v", err)
	}

	wantError(t, run(t, e, "delete_work_item", map[string]any{"work_id": id}), `status is "in_progress"`)
	if w, _ := repo.GetWorkItem(context.Background(), id); w == nil {
		t.Fatalf("in-progress item was deleted")
	}
}

func TestWorkID_Validation(t *testing.T) {
	e, _ := newExecutor(t)
	for _, in := range []map[string]any{{}, {"work_id": 0}, {"work_id": -2}, {"work_id": 1.5}} {
		wantError(t, run(t, e, "delete_work_item", in), "work_id is required")
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	e, _ := newExecutor(t)
	out := e.Execute(context.Background(), "frobnicate", json.RawMessage(`{}`))
	if out != `{"error":"Unknown tool: frobnicate"}` {
		t.Fatalf("unexpected result: %s", out)
	}
}

func TestExecute_MalformedInput(t *testing.T) {
	e, _ := newExecutor(t)
	out := e.Execute(context.Background(), "query_database", json.RawMessage(`{"sql":`))
	if !tools.IsErrorResult(out) {
		t.Fatalf("expected error result, got %s", out)
	}
}

func TestExecute_Memory(t *testing.T) {
	e, _ := newExecutor(t)
	out := run(t, e, "memory", memory.Command{Command: "create", Path: "/memories/notes.md", FileText: "hello"})
	if out != "File created successfully at: /memories/notes.md" {
		t.Fatalf("unexpected result: %s", out)
	}
	out = run(t, e, "memory", memory.Command{Command: "view", Path: "/memories/notes.md"})
	if !strings.Contains(out, "     1\thello") || tools.IsErrorResult(out) {
		t.Fatalf("unexpected view: %s", out)
	}

	out = run(t, e, "memory", memory.Command{Command: "create", Path: "/memories/notes.md", FileText: "again"})
	if out != "Error: File /memories/notes.md already exists" || !tools.IsErrorResult(out) {
		t.Fatalf("duplicate create should be an error result: %s", out)
	}
	out = run(t, e, "memory", memory.Command{Command: "view", Path: "/memoriesX/notes.md"})
	if !strings.HasPrefix(out, "The path /memoriesX/notes.md does not exist") || !tools.IsErrorResult(out) {
		t.Fatalf("sibling root should not exist: %s", out)
	}
}

func TestExecute_RecordsMetrics(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "tools.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	m := metrics.New(prometheus.NewRegistry())
	e := tools.NewExecutor(repo, memory.New(repo), zerolog.Nop(), m)

	run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "select 1"})
	run(t, e, "query_database", tools.QueryDatabaseInput{SQL: "update works set summary = ''"})

	if got := testutil.ToFloat64(m.ToolInvocationsTotal.WithLabelValues("query_database", "ok")); got != 1 {
		t.Fatalf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(m.ToolInvocationsTotal.WithLabelValues("query_database", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func TestIsErrorResult(t *testing.T) {
	cases := map[string]bool{
		`{"error":"x"}`:          true,
		`{"rows":[{"error":1}]}`: false,
		`Error: File exists`:     true,
		`{"success":true}`:       false,
		tools.ErrorResult(`a"b`): true,

		"The path /memories/x does not exist. Please provide a valid path.": true,
		"No replacement was performed, old_str `a` did not appear verbatim": true,
		"Unknown memory command: frob":                                       true,
		"File created successfully at: /memories/x":                          false,
		"The memory file has been edited.":                                   false,
	}
	for in, want := range cases {
		if got := tools.IsErrorResult(in); got != want {
			t.Errorf("IsErrorResult(%q) = %v, want %v", in, got, want)
		}
	}
}
