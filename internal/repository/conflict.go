package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/tradecove/tradecove-api/internal/domain"
)

// Index names from migrations/0001_init.up.sql. Postgres reports the
// violated index in pq.Error.Constraint on a 23505.
const (
	emailLiveIdx     = "accounts_email_live_idx"
	usernameLowerIdx = "accounts_username_lower_idx"
	walletAddressIdx = "accounts_wallet_address_idx"
	webhookEventKey  = "webhook_events_source_idempotency_key_key"
)

// translateConflict maps a duplicate-key failure onto the domain error
// for the uniqueness rule that was violated. Non-conflict errors pass
// through untouched.
func translateConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}

	switch pqErr.Constraint {
	case emailLiveIdx:
		return domain.ErrEmailTaken
	case usernameLowerIdx:
		return domain.ErrUsernameTaken
	case walletAddressIdx:
		return domain.ErrWalletClaimed
	case webhookEventKey:
		return domain.ErrDuplicateEvent
	default:
		return err
	}
}
