package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidUsername     = errors.New("username must be 3-20 letters, digits or underscores")
	ErrUsernameReserved    = errors.New("username is reserved")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidWallet       = errors.New("invalid wallet address")
	ErrWalletClaimed       = errors.New("wallet already claimed")
	ErrEmailTaken          = errors.New("email already in use")
	ErrTooManyCoins        = errors.New("at most 3 top coins allowed")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidPlan         = errors.New("unknown billing plan")
	ErrUpstream            = errors.New("upstream provider failure")
	ErrDuplicateEvent      = errors.New("webhook event already processed")
	ErrInvalidRequest      = errors.New("invalid request")
)
