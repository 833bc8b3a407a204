package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditEntry is one debit from an account's balance. Entries are kept
// newest-first and trimmed to MaxCreditHistory per account.
type CreditEntry struct {
	ID                uuid.UUID
	AccountExternalID string
	Coin              string
	Strategy          string
	CreditsUsed       int64
	CreatedAt         time.Time
}
