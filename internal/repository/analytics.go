package repository

import (
	"context"
	"fmt"
	"time"

	"questbot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Feedback struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *Repository) SaveEvent(ctx context.Context, event *model.Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	query, args, err := squirrel.
		Insert("analytics").
		SetMap(map[string]interface{}{
			"id":         event.ID,
			"user_id":    event.UserID,
			"event":      event.Name,
			"payload":    string(data),
			"created_at": event.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build event insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *Repository) CountEvents(ctx context.Context, name string, since time.Time) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("analytics").
		Where(squirrel.Eq{"event": name}).
		Where(squirrel.GtOrEq{"created_at": since}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func (r *Repository) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	query, args, err := squirrel.
		Insert("feedback").
		SetMap(map[string]interface{}{
			"id":         feedback.ID,
			"user_id":    feedback.UserID,
			"username":   feedback.Username,
			"text":       feedback.Text,
			"created_at": feedback.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build feedback insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

func (r *Repository) ListFeedback(ctx context.Context, limit int) ([]*model.Feedback, error) {
	query, args, err := squirrel.
		Select("*").
		From("feedback").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Feedback
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	out := make([]*model.Feedback, 0, len(rows))
	for _, row := range rows {
		out = append(out, &model.Feedback{
			ID:        row.ID,
			UserID:    row.UserID,
			Username:  row.Username,
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
