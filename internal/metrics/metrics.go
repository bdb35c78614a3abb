// Package metrics provides Prometheus metrics for the assistant.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Tool executor
	ToolInvocationsTotal *prometheus.CounterVec
	ToolDuration         *prometheus.HistogramVec

	// Conversation loop
	ModelCallsTotal   *prometheus.CounterVec
	LoopRounds        prometheus.Histogram
	LoopOutcomesTotal *prometheus.CounterVec
	TokensTotal       *prometheus.CounterVec

	// Scheduler
	TaskRunsTotal   *prometheus.CounterVec
	TaskRunDuration *prometheus.HistogramVec

	// Inbound chat
	MessageWords *prometheus.HistogramVec

	// HTTP API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.ToolInvocationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tool_invocations_total",
			Help: "Total number of tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	m.ToolDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_tool_duration_seconds",
			Help:    "Duration of tool invocations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"tool"},
	)

	m.ModelCallsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_model_calls_total",
			Help: "Total number of model calls by status",
		},
		[]string{"status"},
	)

	m.LoopRounds = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_loop_rounds",
			Help:    "Number of model rounds used per conversation run",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	m.LoopOutcomesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_loop_outcomes_total",
			Help: "Conversation runs by exit reason",
		},
		[]string{"outcome"},
	)

	m.TokensTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tokens_total",
			Help: "Model tokens consumed by direction",
		},
		[]string{"direction"},
	)

	m.TaskRunsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_task_runs_total",
			Help: "Scheduled task runs by task and terminal status",
		},
		[]string{"task", "status"},
	)

	m.TaskRunDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_task_run_duration_seconds",
			Help:    "Duration of scheduled task runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	m.MessageWords = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_message_words",
			Help:    "Word count of chat messages by role",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"role"},
	)

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	return m
}

// RecordTool records one tool invocation. outcome is "ok" or "error".
func (m *Metrics) RecordTool(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolInvocationsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordModelCall records one model API call.
func (m *Metrics) RecordModelCall(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelCallsTotal.WithLabelValues(status).Inc()
}

// RecordLoop records how a conversation run ended, its round count, and its token totals.
func (m *Metrics) RecordLoop(outcome string, rounds int, tokensIn, tokensOut int64) {
	if m == nil {
		return
	}
	m.LoopOutcomesTotal.WithLabelValues(outcome).Inc()
	m.LoopRounds.Observe(float64(rounds))
	m.TokensTotal.WithLabelValues("input").Add(float64(tokensIn))
	m.TokensTotal.WithLabelValues("output").Add(float64(tokensOut))
}

// RecordTaskRun records a finished task run.
func (m *Metrics) RecordTaskRun(task, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TaskRunsTotal.WithLabelValues(task, status).Inc()
	m.TaskRunDuration.WithLabelValues(task).Observe(d.Seconds())
}

// ObserveMessage records the size of a chat message.
func (m *Metrics) ObserveMessage(role, text string) {
	if m == nil {
		return
	}
	m.MessageWords.WithLabelValues(role).Observe(float64(CountFeatures(text).Words))
}

// RecordHTTPRequest records one served API request. route is the matched pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
