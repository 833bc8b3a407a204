package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
	"github.com/tradecove/tradecove-api/internal/service"
)

type accountService interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	SetUsername(ctx context.Context, externalID, desired string) (*domain.Account, error)
	CheckUsernameAvailable(ctx context.Context, desired string) (service.Availability, error)
	SetWallet(ctx context.Context, externalID, address string) (*domain.Account, error)
	ClearWallet(ctx context.Context, externalID string) (*domain.Account, error)
	SetTopCoins(ctx context.Context, externalID string, coins []string) (*domain.Account, error)
}

type creditHistoryReader interface {
	GetHistory(ctx context.Context, externalID string) (int64, []domain.CreditEntry, error)
}

type AccountHandler struct {
	accounts accountService
	credits  creditHistoryReader
}

func NewAccountHandler(accounts accountService, credits creditHistoryReader) *AccountHandler {
	return &AccountHandler{accounts: accounts, credits: credits}
}

// accountDTO whitelists the fields exposed to callers. Timestamps
// marshal as RFC 3339; an unset username is null, never "".
type accountDTO struct {
	ExternalID         string    `json:"external_id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Username           *string   `json:"username"`
	SubscriptionTier   string    `json:"subscription_tier"`
	BillingCustomerRef string    `json:"billing_customer_ref"`
	Credits            int64     `json:"credits"`
	TopCoins           []string  `json:"top_coins"`
	WalletAddress      string    `json:"wallet_address"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// profileDTO is the full account read: the account plus its newest-first
// credit history. Mutation responses return the bare accountDTO.
type profileDTO struct {
	accountDTO
	CreditHistory []creditEntryDTO `json:"credit_history"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	var username *string
	if a.Username != "" {
		username = &a.Username
	}
	coins := a.TopCoins
	if coins == nil {
		coins = []string{}
	}
	return accountDTO{
		ExternalID:         a.ExternalID,
		Email:              a.Email,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		Username:           username,
		SubscriptionTier:   string(a.SubscriptionTier),
		BillingCustomerRef: a.BillingCustomerRef,
		Credits:            a.Credits,
		TopCoins:           coins,
		WalletAddress:      a.WalletAddress,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	account, err := h.accounts.GetByExternalID(r.Context(), externalID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get account", "error", err)
		RespondDomainError(w, err)
		return
	}

	_, entries, err := h.credits.GetHistory(r.Context(), externalID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get credit history", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, profileDTO{
		accountDTO:    toAccountDTO(account),
		CreditHistory: toCreditHistoryDTO(entries),
	})
}

type setUsernameRequest struct {
	Username string `json:"username"`
}

func (h *AccountHandler) SetUsername(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req setUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Username == "" {
		RespondValidationError(w, []FieldError{{Field: "username", Message: "required"}})
		return
	}

	account, err := h.accounts.SetUsername(r.Context(), externalID, req.Username)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to set username", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type availabilityDTO struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func (h *AccountHandler) CheckUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	desired := r.URL.Query().Get("username")
	if desired == "" {
		RespondValidationError(w, []FieldError{{Field: "username", Message: "required"}})
		return
	}

	availability, err := h.accounts.CheckUsernameAvailable(r.Context(), desired)
	if err != nil {
		logging.FromContext(r.Context()).Error("availability check failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, availabilityDTO{
		Available: availability.Available,
		Reason:    availability.Reason,
	})
}

type setWalletRequest struct {
	WalletAddress string `json:"wallet_address"`
}

func (h *AccountHandler) SetWallet(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req setWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.WalletAddress == "" {
		RespondValidationError(w, []FieldError{{Field: "wallet_address", Message: "required"}})
		return
	}

	account, err := h.accounts.SetWallet(r.Context(), externalID, req.WalletAddress)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to claim wallet", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) ClearWallet(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	account, err := h.accounts.ClearWallet(r.Context(), externalID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to release wallet", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

type setTopCoinsRequest struct {
	TopCoins []string `json:"top_coins"`
}

func (h *AccountHandler) SetTopCoins(w http.ResponseWriter, r *http.Request) {
	externalID, appErr := callerExternalID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req setTopCoinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	account, err := h.accounts.SetTopCoins(r.Context(), externalID, req.TopCoins)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to set top coins", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}
