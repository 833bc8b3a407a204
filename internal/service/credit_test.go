package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecove/tradecove-api/internal/domain"
)

type fakeCreditLedger struct {
	balance     int64
	debits      int
	credits     int
	lastAmount  int64
	historySize int
}

func (f *fakeCreditLedger) Debit(_ context.Context, externalID string, amount int64, coin, strategy string) (*domain.Account, error) {
	if f.balance < amount {
		return nil, domain.ErrInsufficientCredits
	}
	f.balance -= amount
	f.debits++
	f.lastAmount = amount
	return &domain.Account{ExternalID: externalID, Credits: f.balance}, nil
}

func (f *fakeCreditLedger) Credit(_ context.Context, externalID string, amount int64) (*domain.Account, error) {
	f.balance += amount
	f.credits++
	f.lastAmount = amount
	return &domain.Account{ExternalID: externalID, Credits: f.balance}, nil
}

func (f *fakeCreditLedger) GetBalance(_ context.Context, _ string) (int64, error) {
	return f.balance, nil
}

func (f *fakeCreditLedger) GetHistory(_ context.Context, _ string, limit int) ([]domain.CreditEntry, error) {
	n := f.historySize
	if n > limit {
		n = limit
	}
	return make([]domain.CreditEntry, n), nil
}

func TestCreditServiceDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amounts without touching the ledger", func(t *testing.T) {
		ledger := &fakeCreditLedger{balance: 10}
		svc := NewCreditService(ledger)

		for _, amount := range []int64{0, -1, -100} {
			_, err := svc.Debit(ctx, "user_123", amount, "SOL", "momentum")
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		}
		assert.Equal(t, 0, ledger.debits)
		assert.Equal(t, int64(10), ledger.balance)
	})

	t.Run("debits and returns the new balance", func(t *testing.T) {
		ledger := &fakeCreditLedger{balance: 10}
		svc := NewCreditService(ledger)

		account, err := svc.Debit(ctx, "user_123", 3, "SOL", "momentum")
		require.NoError(t, err)
		assert.Equal(t, int64(7), account.Credits)
	})

	t.Run("propagates insufficient balance", func(t *testing.T) {
		ledger := &fakeCreditLedger{balance: 2}
		svc := NewCreditService(ledger)

		_, err := svc.Debit(ctx, "user_123", 3, "SOL", "momentum")
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	})
}

func TestCreditServiceCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		ledger := &fakeCreditLedger{}
		svc := NewCreditService(ledger)

		_, err := svc.Credit(ctx, "user_123", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		assert.Equal(t, 0, ledger.credits)
	})

	t.Run("grants credits", func(t *testing.T) {
		ledger := &fakeCreditLedger{balance: 5}
		svc := NewCreditService(ledger)

		account, err := svc.Credit(ctx, "user_123", 100)
		require.NoError(t, err)
		assert.Equal(t, int64(105), account.Credits)
	})
}

func TestHasEnoughCredits(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		balance  int64
		required int64
		want     bool
	}{
		{name: "enough", balance: 10, required: 5, want: true},
		{name: "exactly enough", balance: 5, required: 5, want: true},
		{name: "not enough", balance: 4, required: 5, want: false},
		{name: "zero required defaults to one", balance: 1, required: 0, want: true},
		{name: "zero required with empty balance", balance: 0, required: 0, want: false},
		{name: "negative required defaults to one", balance: 1, required: -3, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCreditService(&fakeCreditLedger{balance: tt.balance})
			got, err := svc.HasEnoughCredits(ctx, "user_123", tt.required)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetHistoryCapsAtMax(t *testing.T) {
	ledger := &fakeCreditLedger{balance: 7, historySize: 120}
	svc := NewCreditService(ledger)

	balance, entries, err := svc.GetHistory(context.Background(), "user_123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)
	assert.Len(t, entries, domain.MaxCreditHistory)
}
