package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
)

func (r *Repository) InsertEvent(ctx context.Context, ev domain.Event) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, created_at, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, 'NEW', $7)
	`, ev.ID, ev.AggregateType, ev.AggregateID, ev.EventType, ev.Payload, ev.CreatedAt, ev.DedupeKey)
	return mapError(err)
}

func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.PublishedAt, &ev.DedupeKey)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}
