package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidSignature = &AppError{http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature is invalid or stale"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrRateLimited      = &AppError{http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests"}
	ErrEventInFlight    = &AppError{http.StatusConflict, "EVENT_IN_FLIGHT", "Event delivery is already being processed"}

	ErrInvalidUsername     = &AppError{http.StatusBadRequest, "INVALID_USERNAME", "Username must be 3-20 letters, digits or underscores"}
	ErrUsernameReserved    = &AppError{http.StatusBadRequest, "USERNAME_RESERVED", "Username is reserved"}
	ErrUsernameTaken       = &AppError{http.StatusConflict, "USERNAME_TAKEN", "Username is already taken"}
	ErrInvalidWallet       = &AppError{http.StatusBadRequest, "INVALID_WALLET_ADDRESS", "Wallet address is not a valid base58 string"}
	ErrWalletClaimed       = &AppError{http.StatusConflict, "WALLET_ALREADY_CLAIMED", "Wallet address is already claimed by another account"}
	ErrEmailTaken          = &AppError{http.StatusConflict, "EMAIL_TAKEN", "Email is already in use"}
	ErrTooManyCoins        = &AppError{http.StatusBadRequest, "TOO_MANY_TOP_COINS", "At most 3 top coins allowed"}
	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInsufficientCredits = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_CREDITS", "Insufficient credits"}
	ErrInvalidPlan         = &AppError{http.StatusUnprocessableEntity, "INVALID_PLAN", "Unknown billing plan"}
	ErrUpstreamFailure     = &AppError{http.StatusBadGateway, "UPSTREAM_FAILURE", "Provider request failed"}
)
