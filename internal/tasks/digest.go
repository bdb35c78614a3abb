// Package tasks holds the scheduled tasks the assistant runs.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/history"
	"github.com/petasbytes/go-assistant/internal/runner"
	"github.com/petasbytes/go-assistant/internal/scheduler"
)

const (
	DigestTaskName = "work-digest"

	// DigestSchedule runs at 09:00 on weekdays.
	DigestSchedule = "0 9 * * 1-5"

	digestDir = "/memories/digests/"
)

// WorkSource lists open work.
type WorkSource interface {
	ActiveProjects(ctx context.Context) ([]domain.Project, error)
	PendingWork(ctx context.Context, projectID int64) ([]domain.WorkItem, error)
	InProgressWork(ctx context.Context, projectID int64) ([]domain.WorkItem, error)
}

// Conversation runs a one-off exchange with the model.
type Conversation interface {
	RunWithSink(ctx context.Context, msgs []history.Message, sink runner.UsageSink) (string, error)
}

// Files writes digest files into the memory store.
type Files interface {
	Create(ctx context.Context, path, text string) (string, error)
	Delete(ctx context.Context, path string) (string, error)
}

// Digest summarises open work items once a day and files the summary under /memories/digests/.
type Digest struct {
	work   WorkSource
	convo  Conversation
	files  Files
	logger zerolog.Logger
	now    func() time.Time
}

func NewDigest(work WorkSource, convo Conversation, files Files, logger zerolog.Logger) *Digest {
	return &Digest{
		work:   work,
		convo:  convo,
		files:  files,
		logger: logger.With().Str("task", DigestTaskName).Logger(),
		now:    time.Now,
	}
}

// Task returns the scheduler registration. An empty schedule means DigestSchedule.
func (d *Digest) Task(schedule string) scheduler.Task {
	if schedule == "" {
		schedule = DigestSchedule
	}
	return scheduler.Task{
		Name:        DigestTaskName,
		Schedule:    schedule,
		Description: "Summarise pending and in-progress work items",
		Handler:     d.Run,
	}
}

// DigestPath returns the memory path of the digest for day.
func DigestPath(day time.Time) string {
	return digestDir + day.Format("2006-01-02") + ".md"
}

// Run is the task handler.
func (d *Digest) Run(ctx context.Context, tc *scheduler.TaskContext) (string, error) {
	open, count, err := d.openWork(ctx)
	if err != nil {
		return "", err
	}
	if count == 0 {
		tc.LogAction(ctx, "digest_skipped", "No open work items", nil)
		return "No open work items", nil
	}

	day := d.now()
	prompt := digestPrompt(day, open)
	reply, err := d.convo.RunWithSink(ctx, []history.Message{{Role: domain.RoleUser, Content: prompt}}, tc.LogUsage)
	if err != nil {
		return "", fmt.Errorf("generate digest: %w", err)
	}

	path := DigestPath(day)
	// Re-running on the same day replaces that day's digest.
	if _, err := d.files.Delete(ctx, path); err != nil {
		return "", fmt.Errorf("replace digest: %w", err)
	}
	body := fmt.Sprintf("# Work digest %s\n\n%s\n", day.Format("2006-01-02"), reply)
	res, err := d.files.Create(ctx, path, body)
	if err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	if strings.HasPrefix(res, "Error:") {
		return "", fmt.Errorf("write digest: %s", res)
	}

	summary := fmt.Sprintf("Digest of %d open work items written to %s", count, path)
	tc.LogAction(ctx, "digest_written", summary, map[string]any{"path": path, "items": count})
	d.logger.Info().Int64("run_id", tc.RunID).Int("items", count).Str("path", path).Msg("digest written")
	return summary, nil
}

type projectWork struct {
	project    domain.Project
	inProgress []domain.WorkItem
	pending    []domain.WorkItem
}

func (d *Digest) openWork(ctx context.Context) ([]projectWork, int, error) {
	projects, err := d.work.ActiveProjects(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	var out []projectWork
	count := 0
	for _, p := range projects {
		inProgress, err := d.work.InProgressWork(ctx, p.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("in-progress work for %s: %w", p.Slug, err)
		}
		pending, err := d.work.PendingWork(ctx, p.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("pending work for %s: %w", p.Slug, err)
		}
		if len(inProgress)+len(pending) == 0 {
			continue
		}
		out = append(out, projectWork{project: p, inProgress: inProgress, pending: pending})
		count += len(inProgress) + len(pending)
	}
	return out, count, nil
}

func digestPrompt(day time.Time, open []projectWork) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short morning digest for %s of the open work below. ", day.Format("Monday 2 January 2006"))
	b.WriteString("Group it by project, lead with what is in progress, and suggest what to pick up next. Reply with the digest only.\n")
	for _, pw := range open {
		fmt.Fprintf(&b, "\n## %s (%s)\n", pw.project.Title, pw.project.Slug)
		for _, w := range pw.inProgress {
			fmt.Fprintf(&b, "- [in progress] #%d %s%s\n", w.ID, w.Summary, tagSuffix(w.Tags))
		}
		for _, w := range pw.pending {
			fmt.Fprintf(&b, "- [pending] #%d %s%s\n", w.ID, w.Summary, tagSuffix(w.Tags))
		}
	}
	return b.String()
}

func tagSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " (" + strings.Join(tags, ", ") + ")"
}
