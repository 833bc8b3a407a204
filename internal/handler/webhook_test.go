package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/service"
)

const testWebhookSecret = "test-webhook-secret"

func TestVerifyWebhook(t *testing.T) {
	now := time.Now()
	body := []byte(`{"event_id":"evt_1"}`)
	freshTS := strconv.FormatInt(now.Unix(), 10)
	staleTS := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
	futureTS := strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10)

	tests := []struct {
		name      string
		timestamp string
		signature string
		want      bool
	}{
		{
			name:      "valid",
			timestamp: freshTS,
			signature: SignWebhook(body, freshTS, testWebhookSecret),
			want:      true,
		},
		{
			name:      "wrong signature",
			timestamp: freshTS,
			signature: "deadbeef",
			want:      false,
		},
		{
			name:      "missing signature",
			timestamp: freshTS,
			signature: "",
			want:      false,
		},
		{
			name:      "missing timestamp",
			timestamp: "",
			signature: SignWebhook(body, freshTS, testWebhookSecret),
			want:      false,
		},
		{
			name:      "non-numeric timestamp",
			timestamp: "yesterday",
			signature: SignWebhook(body, "yesterday", testWebhookSecret),
			want:      false,
		},
		{
			name:      "stale timestamp with valid signature",
			timestamp: staleTS,
			signature: SignWebhook(body, staleTS, testWebhookSecret),
			want:      false,
		},
		{
			name:      "future timestamp with valid signature",
			timestamp: futureTS,
			signature: SignWebhook(body, futureTS, testWebhookSecret),
			want:      false,
		},
		{
			name:      "wrong secret",
			timestamp: freshTS,
			signature: SignWebhook(body, freshTS, "some-other-secret"),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := verifyWebhook(body, tt.timestamp, tt.signature, testWebhookSecret, 5*time.Minute, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyWebhookSignatureCoversTimestamp(t *testing.T) {
	now := time.Now()
	body := []byte(`{"event_id":"evt_1"}`)
	originalTS := strconv.FormatInt(now.Unix(), 10)
	sig := SignWebhook(body, originalTS, testWebhookSecret)

	// Resending the same body under a different timestamp must fail even
	// though both are fresh.
	otherTS := strconv.FormatInt(now.Add(time.Minute).Unix(), 10)
	assert.False(t, verifyWebhook(body, otherTS, sig, testWebhookSecret, 5*time.Minute, now))
}

type mockIdentityProcessor struct {
	processed []service.IdentityEvent
	err       error
}

func (m *mockIdentityProcessor) Process(_ context.Context, event service.IdentityEvent) error {
	m.processed = append(m.processed, event)
	return m.err
}

type mockEventRecorder struct {
	created   *domain.WebhookEvent
	processed []uuid.UUID
	deleted   []uuid.UUID
	createErr error
	existing  *domain.WebhookEvent
}

func (m *mockEventRecorder) Create(_ context.Context, event *domain.WebhookEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = event
	return nil
}

func (m *mockEventRecorder) MarkProcessed(_ context.Context, id uuid.UUID) error {
	m.processed = append(m.processed, id)
	return nil
}

func (m *mockEventRecorder) GetBySourceAndKey(_ context.Context, _ domain.WebhookSource, _ string) (*domain.WebhookEvent, error) {
	if m.existing == nil {
		return nil, domain.ErrNotFound
	}
	return m.existing, nil
}

func (m *mockEventRecorder) Delete(_ context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func identityEventBody(eventType string) string {
	return fmt.Sprintf(`{
		"event_id": "evt_%s",
		"type": %q,
		"data": {
			"id": "user_123",
			"email": "trader@example.com",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"username": "soltrader"
		}
	}`, uuid.NewString(), eventType)
}

func signedWebhookRequest(t *testing.T, path, body, secret string) *http.Request {
	t.Helper()

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(timestampHeader, ts)
	req.Header.Set(signatureHeader, SignWebhook([]byte(body), ts, secret))
	return req
}

func TestIdentityWebhookReceive(t *testing.T) {
	t.Run("processes a valid delivery", func(t *testing.T) {
		processor := &mockIdentityProcessor{}
		recorder := &mockEventRecorder{}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := identityEventBody(service.IdentityEventCreated)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/identity", body, testWebhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "processed")

		require.Len(t, processor.processed, 1)
		assert.Equal(t, "user_123", processor.processed[0].UserID)
		assert.Equal(t, "soltrader", processor.processed[0].Username)

		require.NotNil(t, recorder.created)
		assert.Equal(t, domain.WebhookSourceIdentity, recorder.created.Source)
		require.Len(t, recorder.processed, 1)
		assert.Equal(t, recorder.created.ID, recorder.processed[0])
		assert.Empty(t, recorder.deleted)
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		processor := &mockIdentityProcessor{}
		recorder := &mockEventRecorder{}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := identityEventBody(service.IdentityEventCreated)
		req := signedWebhookRequest(t, "/api/v1/webhooks/identity", body, "some-other-secret")
		rec := httptest.NewRecorder()
		h.Receive(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, processor.processed)
		assert.Nil(t, recorder.created)
	})

	t.Run("rejects a payload missing required fields", func(t *testing.T) {
		processor := &mockIdentityProcessor{}
		recorder := &mockEventRecorder{}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := `{"event_id": "evt_1", "type": "identity.created", "data": {}}`
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/identity", body, testWebhookSecret))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, processor.processed)
	})

	t.Run("acknowledges a redelivered event without reprocessing", func(t *testing.T) {
		processedAt := time.Now().UTC()
		processor := &mockIdentityProcessor{}
		recorder := &mockEventRecorder{
			createErr: domain.ErrDuplicateEvent,
			existing:  &domain.WebhookEvent{ID: uuid.New(), ProcessedAt: &processedAt},
		}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := identityEventBody(service.IdentityEventCreated)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/identity", body, testWebhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "already_processed")
		assert.Empty(t, processor.processed)
	})

	t.Run("a duplicate of an in-flight delivery is not acknowledged", func(t *testing.T) {
		processor := &mockIdentityProcessor{}
		recorder := &mockEventRecorder{
			createErr: domain.ErrDuplicateEvent,
			existing:  &domain.WebhookEvent{ID: uuid.New()},
		}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := identityEventBody(service.IdentityEventCreated)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/identity", body, testWebhookSecret))

		// Non-2xx so the provider redelivers in case the first attempt
		// ends up failing.
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Empty(t, processor.processed)
	})

	t.Run("releases the idempotency record when processing fails", func(t *testing.T) {
		processor := &mockIdentityProcessor{err: domain.ErrEmailTaken}
		recorder := &mockEventRecorder{}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := identityEventBody(service.IdentityEventCreated)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/identity", body, testWebhookSecret))

		assert.Equal(t, http.StatusConflict, rec.Code)
		require.NotNil(t, recorder.created)
		require.Len(t, recorder.deleted, 1)
		assert.Equal(t, recorder.created.ID, recorder.deleted[0])
		assert.Empty(t, recorder.processed)
	})

	t.Run("deletion events do not require an email", func(t *testing.T) {
		processor := &mockIdentityProcessor{}
		recorder := &mockEventRecorder{}
		h := NewIdentityWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := fmt.Sprintf(`{
			"event_id": "evt_%s",
			"type": %q,
			"data": {"id": "user_123"}
		}`, uuid.NewString(), service.IdentityEventDeleted)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/identity", body, testWebhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, processor.processed, 1)
		assert.Equal(t, service.IdentityEventDeleted, processor.processed[0].Type)
	})
}

type mockBillingProcessor struct {
	completed []string
	canceled  []string
	err       error
}

func (m *mockBillingProcessor) HandleCheckoutCompleted(_ context.Context, externalID, _, planID string) error {
	m.completed = append(m.completed, externalID+":"+planID)
	return m.err
}

func (m *mockBillingProcessor) HandleSubscriptionCanceled(_ context.Context, externalID, _ string) error {
	m.canceled = append(m.canceled, externalID)
	return m.err
}

func billingEventBody(eventType string) string {
	payload := map[string]any{
		"event_id": "evt_" + uuid.NewString(),
		"type":     eventType,
		"data": map[string]string{
			"customer_ref": "cus_abc123",
			"external_id":  "user_123",
			"plan_id":      "plan_basic_monthly",
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestBillingWebhookReceive(t *testing.T) {
	t.Run("dispatches checkout completion", func(t *testing.T) {
		processor := &mockBillingProcessor{}
		recorder := &mockEventRecorder{}
		h := NewBillingWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := billingEventBody(service.BillingEventCheckoutCompleted)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/billing", body, testWebhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, processor.completed, 1)
		assert.Equal(t, "user_123:plan_basic_monthly", processor.completed[0])
		require.Len(t, recorder.processed, 1)
	})

	t.Run("dispatches subscription cancellation", func(t *testing.T) {
		processor := &mockBillingProcessor{}
		recorder := &mockEventRecorder{}
		h := NewBillingWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := billingEventBody(service.BillingEventSubscriptionCanceled)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/billing", body, testWebhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, processor.canceled, 1)
		assert.Equal(t, "user_123", processor.canceled[0])
	})

	t.Run("releases the idempotency record when processing fails", func(t *testing.T) {
		processor := &mockBillingProcessor{err: domain.ErrNotFound}
		recorder := &mockEventRecorder{}
		h := NewBillingWebhookHandler(processor, recorder, testWebhookSecret, 5*time.Minute)

		body := billingEventBody(service.BillingEventCheckoutCompleted)
		rec := httptest.NewRecorder()
		h.Receive(rec, signedWebhookRequest(t, "/api/v1/webhooks/billing", body, testWebhookSecret))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.Len(t, recorder.deleted, 1)
	})
}
