package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/logging"
)

const (
	IdentityEventCreated = "identity.created"
	IdentityEventUpdated = "identity.updated"
	IdentityEventDeleted = "identity.deleted"
)

// IdentityEvent is the reconciled view of one identity-provider
// delivery, after the handler has verified the signature.
type IdentityEvent struct {
	Type      string
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Username  string
}

type identityAccountStore interface {
	UpsertFromIdentity(ctx context.Context, account *domain.Account) (*domain.Account, error)
	MarkDeleted(ctx context.Context, externalID string) error
}

// IdentityService reconciles the provider's event stream into the
// account store, one-way.
type IdentityService struct {
	accounts identityAccountStore
}

func NewIdentityService(accounts identityAccountStore) *IdentityService {
	return &IdentityService{accounts: accounts}
}

func (s *IdentityService) Process(ctx context.Context, event IdentityEvent) error {
	switch event.Type {
	case IdentityEventCreated, IdentityEventUpdated:
		return s.reconcile(ctx, event)
	case IdentityEventDeleted:
		return s.markDeleted(ctx, event.UserID)
	default:
		// Providers add event types; unknown ones must not bounce the
		// whole delivery.
		logging.FromContext(ctx).Warn("ignoring unknown identity event type", "event_type", event.Type)
		return nil
	}
}

// reconcile upserts the profile snapshot. A username that collides with
// another account must not block the profile sync, so the upsert is
// retried once with the username omitted.
func (s *IdentityService) reconcile(ctx context.Context, event IdentityEvent) error {
	log := logging.FromContext(ctx)

	account := domain.NewAccount(event.UserID, event.Email, event.FirstName, event.LastName)
	if event.Username != "" {
		if err := domain.ValidateUsername(event.Username); err != nil {
			log.Warn("dropping invalid username from identity event",
				"external_id", event.UserID, "error", err)
		} else {
			account.SetUsername(event.Username)
		}
	}

	_, err := s.accounts.UpsertFromIdentity(ctx, account)
	if errors.Is(err, domain.ErrUsernameTaken) && account.Username != "" {
		log.Info("username taken, syncing profile without it",
			"external_id", event.UserID, "username", account.Username)
		account.SetUsername("")
		_, err = s.accounts.UpsertFromIdentity(ctx, account)
	}
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	log.Info("identity synced", "external_id", event.UserID, "event_type", event.Type)
	return nil
}

// markDeleted tolerates unknown accounts: a redelivered or out-of-order
// deletion is already handled.
func (s *IdentityService) markDeleted(ctx context.Context, externalID string) error {
	err := s.accounts.MarkDeleted(ctx, externalID)
	if errors.Is(err, domain.ErrNotFound) {
		logging.FromContext(ctx).Info("deletion for unknown account, skipping", "external_id", externalID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("markDeleted: %w", err)
	}

	logging.FromContext(ctx).Info("account soft-deleted", "external_id", externalID)
	return nil
}
