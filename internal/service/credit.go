package service

import (
	"context"
	"fmt"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

type creditLedger interface {
	Debit(ctx context.Context, externalID string, amount int64, coin, strategy string) (*domain.Account, error)
	Credit(ctx context.Context, externalID string, amount int64) (*domain.Account, error)
	GetBalance(ctx context.Context, externalID string) (int64, error)
	GetHistory(ctx context.Context, externalID string, limit int) ([]domain.CreditEntry, error)
}

type CreditService struct {
	credits creditLedger
}

func NewCreditService(credits creditLedger) *CreditService {
	return &CreditService{credits: credits}
}

// Debit validates and delegates; the balance check and decrement are
// one atomic statement at the storage layer.
func (s *CreditService) Debit(ctx context.Context, externalID string, amount int64, coin, strategy string) (*domain.Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("Debit: %w", domain.ErrInvalidAmount)
	}

	account, err := s.credits.Debit(ctx, externalID, amount, coin, strategy)
	if err != nil {
		return nil, fmt.Errorf("Debit: %w", err)
	}

	logging.FromContext(ctx).Info("credits debited",
		"external_id", externalID,
		"amount", amount,
		"coin", coin,
		"strategy", strategy,
		"balance", account.Credits,
	)
	return account, nil
}

func (s *CreditService) Credit(ctx context.Context, externalID string, amount int64) (*domain.Account, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}

	account, err := s.credits.Credit(ctx, externalID, amount)
	if err != nil {
		return nil, fmt.Errorf("Credit: %w", err)
	}

	logging.FromContext(ctx).Info("credits granted",
		"external_id", externalID,
		"amount", amount,
		"balance", account.Credits,
	)
	return account, nil
}

func (s *CreditService) HasEnoughCredits(ctx context.Context, externalID string, required int64) (bool, error) {
	if required <= 0 {
		required = 1
	}

	balance, err := s.credits.GetBalance(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("HasEnoughCredits: %w", err)
	}
	return balance >= required, nil
}

func (s *CreditService) GetHistory(ctx context.Context, externalID string) (int64, []domain.CreditEntry, error) {
	balance, err := s.credits.GetBalance(ctx, externalID)
	if err != nil {
		return 0, nil, fmt.Errorf("GetHistory: %w", err)
	}

	entries, err := s.credits.GetHistory(ctx, externalID, domain.MaxCreditHistory)
	if err != nil {
		return 0, nil, fmt.Errorf("GetHistory: %w", err)
	}
	return balance, entries, nil
}
