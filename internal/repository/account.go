package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/tradecove/tradecove-api/internal/domain"
)

const accountColumns = `external_id, email, first_name, last_name, username, username_lower,
	wallet_address, billing_customer_ref, subscription_tier, credits, top_coins,
	deleted_at, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// UpsertFromIdentity reconciles an identity-provider snapshot into the
// store. Inserts apply the defaults carried by the account value;
// updates touch only the profile fields, never billing, credits or
// wallet. Keyed on external_id, so redelivering the same event
// converges instead of duplicating.
//
// A username collision surfaces as domain.ErrUsernameTaken so the
// caller can retry without the username; an email held by another live
// account surfaces as domain.ErrEmailTaken.
func (r *AccountRepository) UpsertFromIdentity(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (
			external_id, email, first_name, last_name, username, username_lower,
			wallet_address, billing_customer_ref, subscription_tier, credits, top_coins,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (external_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE accounts.username END,
			username_lower = CASE WHEN EXCLUDED.username_lower <> '' THEN EXCLUDED.username_lower ELSE accounts.username_lower END,
			updated_at = now()
		RETURNING `+accountColumns,
		account.ExternalID, account.Email, account.FirstName, account.LastName,
		account.Username, account.UsernameLower,
		account.WalletAddress, account.BillingCustomerRef, account.SubscriptionTier,
		account.Credits, pq.Array(account.TopCoins),
		account.CreatedAt, account.UpdatedAt,
	)
	a, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("UpsertFromIdentity: %w", translateConflict(err))
	}
	return a, nil
}

func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE external_id = $1 AND deleted_at IS NULL`, externalID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByExternalID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByExternalID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE billing_customer_ref = $1 AND deleted_at IS NULL`, ref,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByBillingCustomerRef: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByBillingCustomerRef: %w", err)
	}
	return a, nil
}

// SetUsername writes the display and lower-cased fields in one
// statement. The partial unique index on username_lower turns a race
// between two claimants into domain.ErrUsernameTaken for the loser.
func (r *AccountRepository) SetUsername(ctx context.Context, externalID, username, usernameLower string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET username = $1, username_lower = $2, updated_at = now()
		WHERE external_id = $3 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		username, usernameLower, externalID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("SetUsername: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("SetUsername: %w", translateConflict(err))
	}
	return a, nil
}

func (r *AccountRepository) UsernameExists(ctx context.Context, usernameLower string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username_lower = $1 AND username_lower <> '')`,
		usernameLower,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("UsernameExists: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) SetWallet(ctx context.Context, externalID, address string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET wallet_address = $1, updated_at = now()
		WHERE external_id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		address, externalID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("SetWallet: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("SetWallet: %w", translateConflict(err))
	}
	return a, nil
}

// ClearWallet resets the address to the empty sentinel, which the
// sparse unique index ignores, freeing the address for another claim.
func (r *AccountRepository) ClearWallet(ctx context.Context, externalID string) (*domain.Account, error) {
	return r.SetWallet(ctx, externalID, "")
}

func (r *AccountRepository) SetTopCoins(ctx context.Context, externalID string, coins []string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET top_coins = $1, updated_at = now()
		WHERE external_id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		pq.Array(coins), externalID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("SetTopCoins: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("SetTopCoins: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) SetBillingCustomerRef(ctx context.Context, externalID, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET billing_customer_ref = $1, updated_at = now()
		WHERE external_id = $2 AND deleted_at IS NULL`,
		ref, externalID,
	)
	if err != nil {
		return fmt.Errorf("SetBillingCustomerRef: %w", err)
	}
	return requireRow(res, "SetBillingCustomerRef")
}

func (r *AccountRepository) SetSubscriptionTier(ctx context.Context, externalID string, tier domain.SubscriptionTier) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET subscription_tier = $1, updated_at = now()
		WHERE external_id = $2 AND deleted_at IS NULL`,
		tier, externalID,
	)
	if err != nil {
		return fmt.Errorf("SetSubscriptionTier: %w", err)
	}
	return requireRow(res, "SetSubscriptionTier")
}

// MarkDeleted soft-deletes. Data stays in place; the partial email
// index stops covering the row, so the address can be reused.
func (r *AccountRepository) MarkDeleted(ctx context.Context, externalID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = now(), updated_at = now()
		WHERE external_id = $1 AND deleted_at IS NULL`,
		externalID,
	)
	if err != nil {
		return fmt.Errorf("MarkDeleted: %w", err)
	}
	return requireRow(res, "MarkDeleted")
}

func requireRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ExternalID, &a.Email, &a.FirstName, &a.LastName,
		&a.Username, &a.UsernameLower,
		&a.WalletAddress, &a.BillingCustomerRef, &a.SubscriptionTier,
		&a.Credits, pq.Array(&a.TopCoins),
		&a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.TopCoins == nil {
		a.TopCoins = []string{}
	}
	return &a, nil
}
