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

type billingEventProcessor interface {
	HandleCheckoutCompleted(ctx context.Context, externalID, customerRef, planID string) error
	HandleSubscriptionCanceled(ctx context.Context, externalID, customerRef string) error
}

type BillingWebhookHandler struct {
	billing   billingEventProcessor
	events    webhookEventRecorder
	secret    string
	tolerance time.Duration
}

func NewBillingWebhookHandler(billing billingEventProcessor, events webhookEventRecorder, secret string, tolerance time.Duration) *BillingWebhookHandler {
	return &BillingWebhookHandler{
		billing:   billing,
		events:    events,
		secret:    secret,
		tolerance: tolerance,
	}
}

type billingWebhookPayload struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		CustomerRef string `json:"customer_ref"`
		ExternalID  string `json:"external_id"`
		PlanID      string `json:"plan_id"`
	} `json:"data"`
}

func (p billingWebhookPayload) validate() []FieldError {
	var errs []FieldError
	if p.EventID == "" {
		errs = append(errs, FieldError{Field: "event_id", Message: "required"})
	}
	switch p.Type {
	case "":
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	case service.BillingEventCheckoutCompleted:
		if p.Data.PlanID == "" {
			errs = append(errs, FieldError{Field: "data.plan_id", Message: "required"})
		}
	case service.BillingEventSubscriptionCanceled:
	default:
		errs = append(errs, FieldError{Field: "type", Message: "unsupported event type"})
	}
	if p.Data.CustomerRef == "" && p.Data.ExternalID == "" {
		errs = append(errs, FieldError{Field: "data", Message: "customer_ref or external_id required"})
	}
	return errs
}

func (h *BillingWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if !verifyWebhook(body, r.Header.Get(timestampHeader), r.Header.Get(signatureHeader), h.secret, h.tolerance, time.Now()) {
		log.Warn("billing webhook signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var payload billingWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse billing webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	record := &domain.WebhookEvent{
		ID:             uuid.New(),
		Source:         domain.WebhookSourceBilling,
		IdempotencyKey: payload.EventID,
		EventType:      payload.Type,
		Payload:        body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.events.Create(r.Context(), record); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			log.Info("duplicate billing webhook", "event_id", payload.EventID)
			respondDuplicate(w, r, h.events, domain.WebhookSourceBilling, payload.EventID)
			return
		}
		log.Error("failed to record billing webhook", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	switch payload.Type {
	case service.BillingEventCheckoutCompleted:
		err = h.billing.HandleCheckoutCompleted(r.Context(), payload.Data.ExternalID, payload.Data.CustomerRef, payload.Data.PlanID)
	case service.BillingEventSubscriptionCanceled:
		err = h.billing.HandleSubscriptionCanceled(r.Context(), payload.Data.ExternalID, payload.Data.CustomerRef)
	}
	if err != nil {
		log.Error("failed to process billing event",
			"event_id", payload.EventID,
			"event_type", payload.Type,
			"error", err,
		)
		if delErr := h.events.Delete(r.Context(), record.ID); delErr != nil {
			log.Error("failed to release webhook event record", "error", delErr)
		}
		RespondDomainError(w, err)
		return
	}

	if err := h.events.MarkProcessed(r.Context(), record.ID); err != nil {
		log.Error("failed to confirm webhook event record", "error", err)
	}

	log.Info("billing webhook processed",
		"event_id", payload.EventID,
		"event_type", payload.Type,
	)
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "processed"})
}
