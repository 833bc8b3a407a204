package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tradecove/tradecove-api/internal/logging"
)

type checkoutService interface {
	StartCheckout(ctx context.Context, externalID, planID string) (string, error)
}

type BillingHandler struct {
	billing checkoutService
}

func NewBillingHandler(billing checkoutService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

func (h *BillingHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.PlanID == "" {
		RespondValidationError(w, []FieldError{{Field: "plan_id", Message: "required"}})
		return
	}

	url, err := h.billing.StartCheckout(r.Context(), externalID, req.PlanID)
	if err != nil {
		logging.FromContext(r.Context()).Error("checkout failed", "error", err, "plan_id", req.PlanID)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"checkout_url": url})
}
