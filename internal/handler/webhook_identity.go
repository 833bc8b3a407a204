package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
	"github.com/tradecove/tradecove-api/internal/service"
)

type identityProcessor interface {
	Process(ctx context.Context, event service.IdentityEvent) error
}

type webhookEventRecorder interface {
	Create(ctx context.Context, event *domain.WebhookEvent) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	GetBySourceAndKey(ctx context.Context, source domain.WebhookSource, key string) (*domain.WebhookEvent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type IdentityWebhookHandler struct {
	identity  identityProcessor
	events    webhookEventRecorder
	secret    string
	tolerance time.Duration
}

func NewIdentityWebhookHandler(identity identityProcessor, events webhookEventRecorder, secret string, tolerance time.Duration) *IdentityWebhookHandler {
	return &IdentityWebhookHandler{
		identity:  identity,
		events:    events,
		secret:    secret,
		tolerance: tolerance,
	}
}

type identityWebhookPayload struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
	} `json:"data"`
}

func (p identityWebhookPayload) validate() []FieldError {
	var errs []FieldError
	if p.EventID == "" {
		errs = append(errs, FieldError{Field: "event_id", Message: "required"})
	}
	if p.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	}
	if p.Data.ID == "" {
		errs = append(errs, FieldError{Field: "data.id", Message: "required"})
	}
	if p.Type != service.IdentityEventDeleted && p.Data.Email == "" {
		errs = append(errs, FieldError{Field: "data.email", Message: "required"})
	}
	return errs
}

func (h *IdentityWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if !verifyWebhook(body, r.Header.Get(timestampHeader), r.Header.Get(signatureHeader), h.secret, h.tolerance, time.Now()) {
		log.Warn("identity webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var payload identityWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse identity webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	record := &domain.WebhookEvent{
		ID:             uuid.New(),
		Source:         domain.WebhookSourceIdentity,
		IdempotencyKey: payload.EventID,
		EventType:      payload.Type,
		Payload:        body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.events.Create(r.Context(), record); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			log.Info("duplicate identity webhook", "event_id", payload.EventID)
			respondDuplicate(w, r, h.events, domain.WebhookSourceIdentity, payload.EventID)
			return
		}
		log.Error("failed to record identity webhook", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	event := service.IdentityEvent{
		Type:      payload.Type,
		UserID:    payload.Data.ID,
		Email:     payload.Data.Email,
		FirstName: payload.Data.FirstName,
		LastName:  payload.Data.LastName,
		Username:  payload.Data.Username,
	}
	if err := h.identity.Process(r.Context(), event); err != nil {
		log.Error("failed to process identity event",
			"event_id", payload.EventID,
			"event_type", payload.Type,
			"error", err,
		)
		// Release the idempotency record so the provider's redelivery
		// gets a real retry instead of an already-processed response.
		if delErr := h.events.Delete(r.Context(), record.ID); delErr != nil {
			log.Error("failed to release webhook event record", "error", delErr)
		}
		RespondDomainError(w, err)
		return
	}

	if err := h.events.MarkProcessed(r.Context(), record.ID); err != nil {
		log.Error("failed to confirm webhook event record", "error", err)
	}

	log.Info("identity webhook processed",
		"event_id", payload.EventID,
		"event_type", payload.Type,
		"external_id", payload.Data.ID,
	)
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "processed"})
}
