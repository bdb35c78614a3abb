package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/petasbytes/go-assistant/internal/metrics"
)

func TestRecordTool(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.RecordTool("memory", "ok", time.Millisecond)
	m.RecordTool("memory", "ok", time.Millisecond)
	m.RecordTool("query_database", "error", time.Millisecond)

	if got := testutil.ToFloat64(m.ToolInvocationsTotal.WithLabelValues("memory", "ok")); got != 2 {
		t.Fatalf("memory ok: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.ToolInvocationsTotal.WithLabelValues("query_database", "error")); got != 1 {
		t.Fatalf("query_database error: want 1, got %v", got)
	}
}

func TestRecordLoopAndModelCalls(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.RecordModelCall(nil)
	m.RecordModelCall(errors.New("boom"))
	m.RecordLoop("reply", 2, 100, 20)

	if got := testutil.ToFloat64(m.ModelCallsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("model errors: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.TokensTotal.WithLabelValues("input")); got != 100 {
		t.Fatalf("input tokens: want 100, got %v", got)
	}
	if got := testutil.ToFloat64(m.LoopOutcomesTotal.WithLabelValues("reply")); got != 1 {
		t.Fatalf("reply outcome: want 1, got %v", got)
	}
}

func TestRecordTaskRun(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.RecordTaskRun("work-digest", "failed", time.Second)
	if got := testutil.ToFloat64(m.TaskRunsTotal.WithLabelValues("work-digest", "failed")); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RecordTool("x", "ok", 0)
	m.RecordModelCall(nil)
	m.RecordLoop("stuck", 10, 1, 1)
	m.RecordTaskRun("x", "completed", 0)
	m.ObserveMessage("user", "hi")
	m.RecordHTTPRequest("/health", 200, 0)
}

func TestRecordHTTPRequest(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.RecordHTTPRequest("/v1/tasks/{name}/run", 404, time.Millisecond)
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/v1/tasks/{name}/run", "404")); got != 1 {
		t.Fatalf("want 1, got %v", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry would panic; separate registries must not.
	metrics.New(prometheus.NewRegistry())
	metrics.New(prometheus.NewRegistry())
}
