package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

type accountStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	SetUsername(ctx context.Context, externalID, username, usernameLower string) (*domain.Account, error)
	UsernameExists(ctx context.Context, usernameLower string) (bool, error)
	SetWallet(ctx context.Context, externalID, address string) (*domain.Account, error)
	ClearWallet(ctx context.Context, externalID string) (*domain.Account, error)
	SetTopCoins(ctx context.Context, externalID string, coins []string) (*domain.Account, error)
}

// AccountService owns the user-initiated profile rules: username
// format/reservation/uniqueness, wallet claims, top-coin lists.
type AccountService struct {
	accounts accountStore
}

func NewAccountService(accounts accountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	account, err := s.accounts.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("GetByExternalID: %w", err)
	}
	return account, nil
}

func (s *AccountService) SetUsername(ctx context.Context, externalID, desired string) (*domain.Account, error) {
	if err := domain.ValidateUsername(desired); err != nil {
		return nil, fmt.Errorf("SetUsername: %w", err)
	}

	account, err := s.accounts.SetUsername(ctx, externalID, desired, strings.ToLower(desired))
	if err != nil {
		return nil, fmt.Errorf("SetUsername: %w", err)
	}

	logging.FromContext(ctx).Info("username set", "external_id", externalID, "username", desired)
	return account, nil
}

// Availability is the read-side mirror of SetUsername's checks.
type Availability struct {
	Available bool
	Reason    string
}

const (
	ReasonInvalidFormat = "invalid_format"
	ReasonReserved      = "reserved"
	ReasonTaken         = "taken"
)

func (s *AccountService) CheckUsernameAvailable(ctx context.Context, desired string) (Availability, error) {
	switch err := domain.ValidateUsername(desired); {
	case errors.Is(err, domain.ErrInvalidUsername):
		return Availability{Reason: ReasonInvalidFormat}, nil
	case errors.Is(err, domain.ErrUsernameReserved):
		return Availability{Reason: ReasonReserved}, nil
	}

	exists, err := s.accounts.UsernameExists(ctx, strings.ToLower(desired))
	if err != nil {
		return Availability{}, fmt.Errorf("CheckUsernameAvailable: %w", err)
	}
	if exists {
		return Availability{Reason: ReasonTaken}, nil
	}
	return Availability{Available: true}, nil
}

func (s *AccountService) SetWallet(ctx context.Context, externalID, address string) (*domain.Account, error) {
	if err := domain.ValidateWalletAddress(address); err != nil {
		return nil, fmt.Errorf("SetWallet: %w", err)
	}

	account, err := s.accounts.SetWallet(ctx, externalID, address)
	if err != nil {
		return nil, fmt.Errorf("SetWallet: %w", err)
	}

	logging.FromContext(ctx).Info("wallet claimed", "external_id", externalID)
	return account, nil
}

func (s *AccountService) ClearWallet(ctx context.Context, externalID string) (*domain.Account, error) {
	account, err := s.accounts.ClearWallet(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("ClearWallet: %w", err)
	}

	logging.FromContext(ctx).Info("wallet released", "external_id", externalID)
	return account, nil
}

// SetTopCoins replaces the whole list; there is no incremental add.
// The cap applies to the submitted list, so duplicates cannot smuggle
// a fourth entry past it.
func (s *AccountService) SetTopCoins(ctx context.Context, externalID string, coins []string) (*domain.Account, error) {
	if len(coins) > domain.MaxTopCoins {
		return nil, fmt.Errorf("SetTopCoins: %w", domain.ErrTooManyCoins)
	}
	normalized := domain.NormalizeTopCoins(coins)

	account, err := s.accounts.SetTopCoins(ctx, externalID, normalized)
	if err != nil {
		return nil, fmt.Errorf("SetTopCoins: %w", err)
	}
	return account, nil
}
