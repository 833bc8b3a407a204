package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradecove/tradecove-api/internal/domain"
)

type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Create claims a delivery for processing. A redelivered event hits the
// (source, idempotency_key) unique key and comes back as
// domain.ErrDuplicateEvent; the caller then checks the existing record
// to tell a finished delivery from one still in flight.
func (r *WebhookEventRepository) Create(ctx context.Context, event *domain.WebhookEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_events (id, source, idempotency_key, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Source, event.IdempotencyKey, event.EventType,
		event.Payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", translateConflict(err))
	}
	return nil
}

// MarkProcessed confirms a delivery after its side effects committed.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET processed_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("MarkProcessed: %w", err)
	}
	return requireRow(res, "MarkProcessed")
}

func (r *WebhookEventRepository) GetBySourceAndKey(ctx context.Context, source domain.WebhookSource, key string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, idempotency_key, event_type, payload, processed_at, created_at
		FROM webhook_events WHERE source = $1 AND idempotency_key = $2`,
		source, key,
	).Scan(
		&event.ID, &event.Source, &event.IdempotencyKey, &event.EventType,
		&event.Payload, &event.ProcessedAt, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetBySourceAndKey: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetBySourceAndKey: %w", err)
	}
	return &event, nil
}

// Delete releases an event's idempotency key after a failed processing
// attempt so the provider's redelivery is retried, not skipped.
func (r *WebhookEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
