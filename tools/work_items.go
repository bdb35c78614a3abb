package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/petasbytes/go-assistant/internal/domain"
	"github.com/petasbytes/go-assistant/internal/store"
)

// styleReferenceCount is how many completed summaries add_work_item returns as a voice guide.
const styleReferenceCount = 5

type AddWorkItemInput struct {
	ProjectSlug string   `json:"project_slug" jsonschema_description:"Project slug (e.g., \"assistant\", \"quizio\")"`
	Summary     string   `json:"summary" jsonschema_description:"Brief description in imperative form (e.g., \"Add user authentication\")"`
	Tags        []string `json:"tags" jsonschema_description:"Tags for the work item (e.g., [\"feature\", \"ui\"])"`
}

type CompleteWorkItemInput struct {
	WorkID           float64 `json:"work_id" jsonschema_description:"The ID of the work item to complete"`
	CompletedSummary string  `json:"completed_summary,omitempty" jsonschema_description:"Optional summary of what was accomplished (past tense)"`
}

type UpdateWorkItemInput struct {
	WorkID  float64  `json:"work_id" jsonschema_description:"The ID of the work item to update"`
	Summary string   `json:"summary,omitempty" jsonschema_description:"New summary (imperative form)"`
	Tags    []string `json:"tags,omitempty" jsonschema_description:"New tags array"`
}

type DeleteWorkItemInput struct {
	WorkID float64 `json:"work_id" jsonschema_description:"The ID of the work item to delete"`
}

var AddWorkItemDefinition = ToolDefinition{
	Name:        "add_work_item",
	Description: "Add a new pending work item to a project.",
	InputSchema: GenerateSchema[AddWorkItemInput](),
}

var CompleteWorkItemDefinition = ToolDefinition{
	Name:        "complete_work_item",
	Description: "Mark a work item as completed.",
	InputSchema: GenerateSchema[CompleteWorkItemInput](),
}

var UpdateWorkItemDefinition = ToolDefinition{
	Name:        "update_work_item",
	Description: "Update an existing work item (summary, tags).",
	InputSchema: GenerateSchema[UpdateWorkItemInput](),
}

var DeleteWorkItemDefinition = ToolDefinition{
	Name:        "delete_work_item",
	Description: `Delete a pending work item permanently. Only works on items with status "pending".`,
	InputSchema: GenerateSchema[DeleteWorkItemInput](),
}

var errWorkIDRequired = errors.New("work_id is required")

// workID converts the model-supplied number to an id. Zero, negative, and fractional values are rejected.
func workID(v float64) (int64, error) {
	if v <= 0 || v != math.Trunc(v) || v > math.MaxInt64 {
		return 0, errWorkIDRequired
	}
	return int64(v), nil
}

// notFound rewrites store.ErrNotFound into a message naming the item.
func notFound(id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("Work item %d not found", id)
	}
	return err
}

func (e *Executor) addWorkItem(ctx context.Context, input json.RawMessage) (string, error) {
	var in AddWorkItemInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	if in.ProjectSlug == "" || in.Summary == "" || in.Tags == nil {
		return "", errors.New("project_slug, summary, and tags are required")
	}

	project, err := e.repo.GetProjectBySlug(ctx, in.ProjectSlug)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", fmt.Errorf("Project %q not found", in.ProjectSlug)
	}

	item, err := e.repo.AddWorkItem(ctx, project.ID, in.Summary, in.Tags)
	if err != nil {
		return "", err
	}

	recent, err := e.repo.RecentCompletedWork(ctx, 0, styleReferenceCount)
	if err != nil {
		// Best-effort: the item is already stored.
		e.logger.Warn().Err(err).Msg("fetch style reference")
	}
	style := make([]string, 0, len(recent))
	for _, w := range recent {
		style = append(style, w.Summary)
	}

	return toJSON(map[string]any{
		"success":         true,
		"item":            item,
		"style_reference": style,
		"note":            "For future items, match the voice of style_reference examples",
	})
}

func (e *Executor) completeWorkItem(ctx context.Context, input json.RawMessage) (string, error) {
	var in CompleteWorkItemInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	id, err := workID(in.WorkID)
	if err != nil {
		return "", err
	}
	item, err := e.repo.CompleteWorkItem(ctx, id, in.CompletedSummary)
	if err != nil {
		return "", notFound(id, err)
	}
	return toJSON(map[string]any{"success": true, "item": item})
}

func (e *Executor) updateWorkItem(ctx context.Context, input json.RawMessage) (string, error) {
	var in UpdateWorkItemInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	id, err := workID(in.WorkID)
	if err != nil {
		return "", err
	}

	var upd domain.WorkUpdate
	if in.Summary != "" {
		upd.Summary = &in.Summary
	}
	if in.Tags != nil {
		upd.Tags = in.Tags
	}
	if upd.Empty() {
		return "", errors.New("At least one of summary or tags is required")
	}

	item, err := e.repo.UpdateWorkItem(ctx, id, upd)
	if err != nil {
		return "", notFound(id, err)
	}
	return toJSON(map[string]any{"success": true, "item": item})
}

func (e *Executor) deleteWorkItem(ctx context.Context, input json.RawMessage) (string, error) {
	var in DeleteWorkItemInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	id, err := workID(in.WorkID)
	if err != nil {
		return "", err
	}
	if err := e.repo.DeleteWorkItem(ctx, id); err != nil {
		return "", notFound(id, err)
	}
	return toJSON(map[string]any{"success": true, "message": fmt.Sprintf("Work item %d deleted", id)})
}
