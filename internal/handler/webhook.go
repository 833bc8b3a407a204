package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

const (
	signatureHeader = "X-Webhook-Signature"
	timestampHeader = "X-Webhook-Timestamp"
)

// verifyWebhook checks the HMAC-SHA256 signature over
// "<timestamp>.<body>" and rejects deliveries whose timestamp falls
// outside the tolerance window in either direction. Replays of an old
// capture fail the freshness check even with a valid signature.
func verifyWebhook(body []byte, timestamp, signature, secret string, tolerance time.Duration, now time.Time) bool {
	if signature == "" || timestamp == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > tolerance || sent.Sub(now) > tolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhook produces the signature a provider would send. Exported
// for tests and the local mock provider.
func SignWebhook(body []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// respondDuplicate answers a delivery whose idempotency key is already
// claimed. A confirmed record gets a 200 so the provider stops; a
// record still in flight gets a 409 so the provider redelivers later,
// in case the first attempt ends up failing.
func respondDuplicate(w http.ResponseWriter, r *http.Request, events webhookEventRecorder, source domain.WebhookSource, key string) {
	existing, err := events.GetBySourceAndKey(r.Context(), source, key)
	if err != nil {
		// The first attempt failed and released the key between our
		// insert and this read; let the provider retry.
		logging.FromContext(r.Context()).Warn("duplicate webhook record vanished", "idempotency_key", key, "error", err)
		RespondAppError(w, ErrEventInFlight, nil)
		return
	}
	if existing.ProcessedAt == nil {
		RespondAppError(w, ErrEventInFlight, nil)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{"status": "already_processed"})
}
