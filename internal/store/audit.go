package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/petasbytes/go-assistant/internal/domain"
)

// LogActionReceipt appends an action receipt.
func (s *SQLiteStore) LogActionReceipt(ctx context.Context, r *domain.ActionReceipt) error {
	meta, err := encodeMetadata(r.Metadata)
	if err != nil {
		return fmt.Errorf("encode receipt metadata: %w", err)
	}
	now := s.now()
	query := `
	INSERT INTO action_receipts (trigger_type, trigger_ref, action_type, summary, metadata, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var res sql.Result
	err = withRetry(ctx, s.logger, "log_action_receipt", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, r.TriggerType, r.TriggerRef, r.ActionType, r.Summary, meta, millis(now))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert action receipt: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	r.CreatedAt = fromMillis(millis(now))
	return nil
}

// LogAPIUsage appends a token usage record.
func (s *SQLiteStore) LogAPIUsage(ctx context.Context, u *domain.APIUsage) error {
	now := s.now()
	var model sql.NullString
	if u.Model != "" {
		model = sql.NullString{String: u.Model, Valid: true}
	}
	query := `
	INSERT INTO api_usage (trigger_type, trigger_ref, tokens_in, tokens_out, model, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var res sql.Result
	err := withRetry(ctx, s.logger, "log_api_usage", func() error {
		var err error
		res, err = s.db.ExecContext(ctx, query, u.TriggerType, u.TriggerRef, u.TokensIn, u.TokensOut, model, millis(now))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert api usage: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		u.ID = id
	}
	u.CreatedAt = fromMillis(millis(now))
	return nil
}

// ListActionReceipts lists receipts for a trigger in insertion order.
func (s *SQLiteStore) ListActionReceipts(ctx context.Context, triggerType, triggerRef string) ([]domain.ActionReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, trigger_type, trigger_ref, action_type, summary, metadata, created_at
	FROM action_receipts WHERE trigger_type = ? AND trigger_ref = ? ORDER BY id`, triggerType, triggerRef)
	if err != nil {
		return nil, fmt.Errorf("query action receipts: %w", err)
	}
	defer rows.Close()

	out := []domain.ActionReceipt{}
	for rows.Next() {
		var r domain.ActionReceipt
		var meta sql.NullString
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.TriggerType, &r.TriggerRef, &r.ActionType, &r.Summary, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan action receipt row: %w", err)
		}
		r.Metadata = decodeMetadata(meta)
		r.CreatedAt = fromMillis(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListAPIUsage lists usage records for a trigger in insertion order.
func (s *SQLiteStore) ListAPIUsage(ctx context.Context, triggerType, triggerRef string) ([]domain.APIUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, trigger_type, trigger_ref, tokens_in, tokens_out, model, created_at
	FROM api_usage WHERE trigger_type = ? AND trigger_ref = ? ORDER BY id`, triggerType, triggerRef)
	if err != nil {
		return nil, fmt.Errorf("query api usage: %w", err)
	}
	defer rows.Close()

	out := []domain.APIUsage{}
	for rows.Next() {
		var u domain.APIUsage
		var model sql.NullString
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.TriggerType, &u.TriggerRef, &u.TokensIn, &u.TokensOut, &model, &createdAt); err != nil {
			return nil, fmt.Errorf("scan api usage row: %w", err)
		}
		u.Model = model.String
		u.CreatedAt = fromMillis(createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}
