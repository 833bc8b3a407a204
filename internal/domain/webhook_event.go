package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookSource string

const (
	WebhookSourceIdentity WebhookSource = "identity"
	WebhookSourceBilling  WebhookSource = "billing"
)

// WebhookEvent records an accepted provider delivery. The unique
// (source, idempotency_key) pair is what makes at-least-once redelivery
// safe: a replay hits the duplicate key instead of mutating twice.
// ProcessedAt stays nil while the delivery is in flight; only a
// confirmed record counts as already processed.
type WebhookEvent struct {
	ID             uuid.UUID
	Source         WebhookSource
	IdempotencyKey string
	EventType      string
	Payload        json.RawMessage
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}
