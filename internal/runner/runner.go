package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/history"
	"github.com/petasbytes/go-assistant/internal/metrics"
	"github.com/petasbytes/go-assistant/internal/provider"
	"github.com/petasbytes/go-assistant/internal/telemetry"
	"github.com/petasbytes/go-assistant/internal/windowing"
	"github.com/petasbytes/go-assistant/tools"
)

const (
	// MaxRounds caps model calls per run.
	MaxRounds = 10

	maxTokens = 1024

	// usageWriteTimeout bounds a detached usage write.
	usageWriteTimeout = 10 * time.Second

	// DefaultInputBudget caps the estimated size of the history sent per run (see windowing.HeuristicCounter).
	DefaultInputBudget = 100_000
)

const (
	EmptyReplyText = "I processed your request but have nothing further to add."
	StuckReplyText = "I seem to be stuck in a loop. Could you rephrase the request or break it into smaller steps?"
)

// DefaultSystemPrompt is sent with every request unless overridden with WithSystemPrompt.
const DefaultSystemPrompt = `You are a personal work assistant. You track projects and work items in a SQLite database and keep long-lived notes in your memory directory.

Use query_database for lookups (SELECT only). Use the work item tools to add, complete, update, or delete items. Check /memories before starting a task and record anything worth remembering there.

Keep replies short and concrete.`

// ToolExecutor runs one tool call and returns its result text. It must not fail.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input json.RawMessage) string
}

// UsageLogger persists token usage records.
type UsageLogger interface {
	LogAPIUsage(ctx context.Context, u *domain.APIUsage) error
}

// UsageSink receives the token totals of one run. Implementations log their own failures.
type UsageSink func(ctx context.Context, tokensIn, tokensOut int64)

// Loop runs conversations against the model.
type Loop struct {
	client  *anthropic.Client
	exec    ToolExecutor
	usage   UsageLogger
	logger  zerolog.Logger
	metrics *metrics.Metrics
	model   anthropic.Model
	system  string
	budget  int

	pending sync.WaitGroup
}

// Option configures a Loop.
type Option func(*Loop)

// WithModel overrides provider.DefaultModel.
func WithModel(model string) Option {
	return func(l *Loop) {
		if model != "" {
			l.model = anthropic.Model(model)
		}
	}
}

// WithSystemPrompt overrides DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(l *Loop) { l.system = prompt }
}

// WithInputBudget overrides DefaultInputBudget. n <= 0 disables trimming by size.
func WithInputBudget(n int) Option {
	return func(l *Loop) { l.budget = n }
}

// WithMetrics records loop and model call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// New returns a Loop. usage may be nil, in which case Run records no usage.
func New(client *anthropic.Client, exec ToolExecutor, usage UsageLogger, logger zerolog.Logger, opts ...Option) *Loop {
	l := &Loop{
		client: client,
		exec:   exec,
		usage:  usage,
		logger: logger.With().Str("component", "runner").Logger(),
		model:  provider.DefaultModel,
		system: DefaultSystemPrompt,
		budget: DefaultInputBudget,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Model returns the model the loop calls.
func (l *Loop) Model() string { return string(l.model) }

// Run answers the latest turn of msgs. When conversationKey is set, the run's token usage
// is stored against it.
func (l *Loop) Run(ctx context.Context, msgs []history.Message, conversationKey string) (string, error) {
	var sink UsageSink
	if conversationKey != "" {
		ctx = telemetry.WithConversationKey(ctx, conversationKey)
		if l.usage != nil {
			sink = l.conversationSink(conversationKey)
		}
	}
	return l.run(ctx, msgs, sink)
}

// RunWithSink is Run with a caller-supplied usage destination, e.g. a task context.
func (l *Loop) RunWithSink(ctx context.Context, msgs []history.Message, sink UsageSink) (string, error) {
	return l.run(ctx, msgs, sink)
}

// Wait blocks until detached usage writes have finished.
func (l *Loop) Wait() { l.pending.Wait() }

func (l *Loop) run(ctx context.Context, msgs []history.Message, sink UsageSink) (string, error) {
	ctx, _ = telemetry.EnsureTurnID(ctx)
	conv := toParams(l.window(ctx, msgs))
	var tokensIn, tokensOut int64

	finish := func(outcome string, rounds int, text string) string {
		l.metrics.RecordLoop(outcome, rounds, tokensIn, tokensOut)
		telemetry.Emit(ctx, l.logger, "loop_finished", map[string]any{
			"outcome":    outcome,
			"rounds":     rounds,
			"tokens_in":  tokensIn,
			"tokens_out": tokensOut,
		})
		l.recordUsage(ctx, sink, tokensIn, tokensOut)
		return text
	}

	for round := 1; round <= MaxRounds; round++ {
		msg, err := l.client.Beta.Messages.New(ctx, l.params(conv))
		l.metrics.RecordModelCall(err)
		if err != nil {
			l.metrics.RecordLoop("error", round, tokensIn, tokensOut)
			// Earlier rounds were billed; a first-round failure has nothing to record.
			if tokensIn+tokensOut > 0 {
				l.recordUsage(ctx, sink, tokensIn, tokensOut)
			}
			return "", fmt.Errorf("model call (round %d): %w", round, err)
		}
		tokensIn += msg.Usage.InputTokens
		tokensOut += msg.Usage.OutputTokens

		uses := toolUses(msg)
		telemetry.Emit(ctx, l.logger, "round_completed", map[string]any{
			"round":       round,
			"model":       string(l.model),
			"stop_reason": string(msg.StopReason),
			"tool_calls":  len(uses),
			"tokens_in":   msg.Usage.InputTokens,
			"tokens_out":  msg.Usage.OutputTokens,
		})

		if len(uses) == 0 {
			return finish("reply", round, replyText(msg)), nil
		}

		results := l.executeTools(ctx, uses)
		conv = append(conv, msg.ToParam(), anthropic.NewBetaUserMessage(results...))

		if msg.StopReason == anthropic.BetaStopReasonEndTurn {
			return finish("end_turn", round, replyText(msg)), nil
		}
	}
	return finish("stuck", MaxRounds, StuckReplyText), nil
}

// window trims msgs to whole exchanges within the input budget.
func (l *Loop) window(ctx context.Context, msgs []history.Message) []history.Message {
	window, stats := windowing.PrepareSendWindow(msgs, l.budget, windowing.HeuristicCounter{})
	if stats.Trimmed() || stats.OverBudgetNewest {
		telemetry.Emit(ctx, l.logger, "window_trimmed", map[string]any{
			"budget":             stats.Budget,
			"total":              stats.Total,
			"included_groups":    stats.IncludedGroups,
			"skipped_groups":     stats.SkippedGroups,
			"orphans":            stats.Orphans,
			"over_budget_newest": stats.OverBudgetNewest,
		})
	}
	return window
}

func (l *Loop) params(conv []anthropic.BetaMessageParam) anthropic.BetaMessageNewParams {
	return anthropic.BetaMessageNewParams{
		Model:     l.model,
		MaxTokens: maxTokens,
		Messages:  conv,
		System:    []anthropic.BetaTextBlockParam{{Text: l.system}},
		Tools:     tools.BetaTools(),
		Betas:     []anthropic.AnthropicBeta{provider.ContextManagementBeta},
	}
}

// executeTools runs every call concurrently. Results are written by index so they keep invocation order.
func (l *Loop) executeTools(ctx context.Context, uses []anthropic.BetaToolUseBlock) []anthropic.BetaContentBlockParamUnion {
	results := make([]anthropic.BetaContentBlockParamUnion, len(uses))
	var g errgroup.Group
	for i, use := range uses {
		g.Go(func() error {
			out := l.exec.Execute(ctx, use.Name, json.RawMessage(use.JSON.Input.Raw()))
			results[i] = toolResult(use.ID, out, tools.IsErrorResult(out))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// recordUsage hands the totals to sink on a detached goroutine. The write outlives ctx cancellation.
func (l *Loop) recordUsage(ctx context.Context, sink UsageSink, tokensIn, tokensOut int64) {
	if sink == nil {
		return
	}
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageWriteTimeout)
		defer cancel()
		sink(wctx, tokensIn, tokensOut)
	}()
}

func (l *Loop) conversationSink(key string) UsageSink {
	return func(ctx context.Context, tokensIn, tokensOut int64) {
		err := l.usage.LogAPIUsage(ctx, &domain.APIUsage{
			TriggerType: domain.TriggerConversation,
			TriggerRef:  key,
			TokensIn:    tokensIn,
			TokensOut:   tokensOut,
			Model:       string(l.model),
		})
		if err != nil {
			l.logger.Warn().Err(err).Str("conversation_key", key).Msg("log api usage")
		}
	}
}

func toParams(msgs []history.Message) []anthropic.BetaMessageParam {
	out := make([]anthropic.BetaMessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewBetaTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			out = append(out, anthropic.BetaMessageParam{
				Role:    anthropic.BetaMessageParamRoleAssistant,
				Content: []anthropic.BetaContentBlockParamUnion{block},
			})
			continue
		}
		out = append(out, anthropic.NewBetaUserMessage(block))
	}
	return out
}

func toolUses(msg *anthropic.BetaMessage) []anthropic.BetaToolUseBlock {
	var uses []anthropic.BetaToolUseBlock
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.BetaToolUseBlock); ok {
			uses = append(uses, v)
		}
	}
	return uses
}

// replyText joins the text blocks of msg, falling back to EmptyReplyText.
func replyText(msg *anthropic.BetaMessage) string {
	var parts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.BetaTextBlock); ok && v.Text != "" {
			parts = append(parts, v.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return EmptyReplyText
	}
	return text
}

func toolResult(id, content string, isError bool) anthropic.BetaContentBlockParamUnion {
	block := anthropic.BetaToolResultBlockParam{
		ToolUseID: id,
		Content: []anthropic.BetaToolResultBlockParamContentUnion{
			{OfText: &anthropic.BetaTextBlockParam{Text: content}},
		},
	}
	if isError {
		block.IsError = anthropic.Bool(true)
	}
	return anthropic.BetaContentBlockParamUnion{OfToolResult: &block}
}
