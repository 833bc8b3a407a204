package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

type creditService interface {
	Debit(ctx context.Context, externalID string, amount int64, coin, strategy string) (*domain.Account, error)
	HasEnoughCredits(ctx context.Context, externalID string, required int64) (bool, error)
	GetHistory(ctx context.Context, externalID string) (int64, []domain.CreditEntry, error)
}

type CreditHandler struct {
	credits creditService
}

func NewCreditHandler(credits creditService) *CreditHandler {
	return &CreditHandler{credits: credits}
}

type creditEntryDTO struct {
	Coin        string    `json:"coin"`
	Strategy    string    `json:"strategy"`
	CreditsUsed int64     `json:"credits_used"`
	Timestamp   time.Time `json:"timestamp"`
}

type creditBalanceDTO struct {
	Credits int64            `json:"credits"`
	History []creditEntryDTO `json:"history"`
}

func toCreditHistoryDTO(entries []domain.CreditEntry) []creditEntryDTO {
	history := make([]creditEntryDTO, len(entries))
	for i, e := range entries {
		history[i] = creditEntryDTO{
			Coin:        e.Coin,
			Strategy:    e.Strategy,
			CreditsUsed: e.CreditsUsed,
			Timestamp:   e.CreatedAt,
		}
	}
	return history
}

func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	balance, entries, err := h.credits.GetHistory(r.Context(), externalID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get credit balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, creditBalanceDTO{
		Credits: balance,
		History: toCreditHistoryDTO(entries),
	})
}

type debitRequest struct {
	Amount   int64  `json:"amount"`
	Coin     string `json:"coin"`
	Strategy string `json:"strategy"`
}

func (r debitRequest) validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if r.Coin == "" {
		errs = append(errs, FieldError{Field: "coin", Message: "required"})
	}
	if r.Strategy == "" {
		errs = append(errs, FieldError{Field: "strategy", Message: "required"})
	}
	return errs
}

func (h *CreditHandler) Debit(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req debitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	account, err := h.credits.Debit(r.Context(), externalID, req.Amount, req.Coin, req.Strategy)
	if err != nil {
		logging.FromContext(r.Context()).Warn("debit rejected", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *CreditHandler) Check(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	required := int64(1)
	if raw := r.URL.Query().Get("required"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			RespondValidationError(w, []FieldError{{Field: "required", Message: "must be a positive integer"}})
			return
		}
		required = parsed
	}

	sufficient, err := h.credits.HasEnoughCredits(r.Context(), externalID, required)
	if err != nil {
		logging.FromContext(r.Context()).Error("credit check failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]bool{"sufficient": sufficient})
}
