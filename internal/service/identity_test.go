package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecove/tradecove-api/internal/domain"
	"github.com/tradecove/tradecove-api/internal/repository"
	"github.com/tradecove/tradecove-api/internal/testutil"
)

func TestIdentityServiceProcess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewAccountRepository(db)
	svc := NewIdentityService(repo)
	ctx := context.Background()

	t.Run("created event provisions an account with defaults", func(t *testing.T) {
		err := svc.Process(ctx, IdentityEvent{
			Type:      IdentityEventCreated,
			UserID:    "user_created",
			Email:     "Created@Example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Username:  "adatrader",
		})
		require.NoError(t, err)

		account, err := repo.GetByExternalID(ctx, "user_created")
		require.NoError(t, err)
		assert.Equal(t, "created@example.com", account.Email)
		assert.Equal(t, "adatrader", account.Username)
		assert.Equal(t, domain.TierFree, account.SubscriptionTier)
		assert.Equal(t, domain.DefaultCredits, account.Credits)
	})

	t.Run("redelivery converges instead of duplicating", func(t *testing.T) {
		event := IdentityEvent{
			Type:      IdentityEventCreated,
			UserID:    "user_replay",
			Email:     "replay@example.com",
			FirstName: "Rae",
			LastName:  "Play",
		}
		require.NoError(t, svc.Process(ctx, event))
		require.NoError(t, svc.Process(ctx, event))

		assert.Equal(t, 1, testutil.CountAccounts(t, db, "user_replay"))
	})

	t.Run("updated event does not reset credits", func(t *testing.T) {
		testutil.SeedAccountWithCredits(t, db, "user_update", "update@example.com", 77)

		err := svc.Process(ctx, IdentityEvent{
			Type:      IdentityEventUpdated,
			UserID:    "user_update",
			Email:     "update-new@example.com",
			FirstName: "Upd",
			LastName:  "Ated",
		})
		require.NoError(t, err)

		account, err := repo.GetByExternalID(ctx, "user_update")
		require.NoError(t, err)
		assert.Equal(t, "update-new@example.com", account.Email)
		assert.Equal(t, int64(77), account.Credits)
	})

	t.Run("colliding username still syncs the profile", func(t *testing.T) {
		holder := testutil.SeedAccount(t, db, "user_holder", "holder@example.com")
		_, err := repo.SetUsername(ctx, holder.ExternalID, "SolQueen", "solqueen")
		require.NoError(t, err)

		err = svc.Process(ctx, IdentityEvent{
			Type:      IdentityEventCreated,
			UserID:    "user_collide",
			Email:     "collide@example.com",
			FirstName: "Col",
			LastName:  "Lide",
			Username:  "solqueen",
		})
		require.NoError(t, err)

		account, err := repo.GetByExternalID(ctx, "user_collide")
		require.NoError(t, err)
		assert.Empty(t, account.Username)
		assert.Equal(t, "collide@example.com", account.Email)
	})

	t.Run("invalid username is dropped, not fatal", func(t *testing.T) {
		err := svc.Process(ctx, IdentityEvent{
			Type:      IdentityEventCreated,
			UserID:    "user_badname",
			Email:     "badname@example.com",
			FirstName: "Bad",
			LastName:  "Name",
			Username:  "x",
		})
		require.NoError(t, err)

		account, err := repo.GetByExternalID(ctx, "user_badname")
		require.NoError(t, err)
		assert.Empty(t, account.Username)
	})

	t.Run("deleted event soft-deletes the account", func(t *testing.T) {
		testutil.SeedAccount(t, db, "user_gone", "gone@example.com")

		err := svc.Process(ctx, IdentityEvent{
			Type:   IdentityEventDeleted,
			UserID: "user_gone",
		})
		require.NoError(t, err)

		_, err = repo.GetByExternalID(ctx, "user_gone")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		// The row survives for audit; only reads exclude it.
		assert.Equal(t, 1, testutil.CountAccounts(t, db, "user_gone"))
	})

	t.Run("deletion of an unknown account is acknowledged", func(t *testing.T) {
		err := svc.Process(ctx, IdentityEvent{
			Type:   IdentityEventDeleted,
			UserID: "user_never_existed",
		})
		assert.NoError(t, err)
	})

	t.Run("unknown event types are ignored", func(t *testing.T) {
		err := svc.Process(ctx, IdentityEvent{
			Type:   "identity.two_factor_enabled",
			UserID: "user_whatever",
		})
		assert.NoError(t, err)
	})
}
