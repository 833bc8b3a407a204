package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradecove/tradecove-api/internal/domain"
)

const creditEntryColumns = `id, account_external_id, coin, strategy, credits_used, created_at`

type CreditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Debit decrements the balance and appends a history entry in one
// transaction. The guard `credits >= $1` makes the decrement a single
// compare-and-write, so concurrent debits serialize on the row and the
// balance can never go negative.
func (r *CreditRepository) Debit(ctx context.Context, externalID string, amount int64, coin, strategy string) (*domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Debit: begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`UPDATE accounts SET credits = credits - $1, updated_at = now()
		WHERE external_id = $2 AND deleted_at IS NULL AND credits >= $1
		RETURNING `+accountColumns,
		amount, externalID,
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Debit: %w", r.classifyNoDebit(ctx, externalID))
		}
		return nil, fmt.Errorf("Debit: %w", err)
	}

	entry := &domain.CreditEntry{
		ID:                uuid.New(),
		AccountExternalID: externalID,
		Coin:              coin,
		Strategy:          strategy,
		CreditsUsed:       amount,
		CreatedAt:         time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_entries (id, account_external_id, coin, strategy, credits_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.AccountExternalID, entry.Coin, entry.Strategy,
		entry.CreditsUsed, entry.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("Debit: insert entry: %w", err)
	}

	// Drop everything past the newest MaxCreditHistory entries. seq is
	// a serial, so it orders entries even when timestamps collide.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM credit_entries
		WHERE account_external_id = $1 AND seq NOT IN (
			SELECT seq FROM credit_entries
			WHERE account_external_id = $1
			ORDER BY seq DESC LIMIT $2
		)`,
		externalID, domain.MaxCreditHistory,
	); err != nil {
		return nil, fmt.Errorf("Debit: trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Debit: commit: %w", err)
	}
	return account, nil
}

// Zero rows from the guarded update means either no such account or
// not enough balance; one follow-up read tells them apart.
func (r *CreditRepository) classifyNoDebit(ctx context.Context, externalID string) error {
	var credits int64
	err := r.db.QueryRowContext(ctx,
		`SELECT credits FROM accounts WHERE external_id = $1 AND deleted_at IS NULL`,
		externalID,
	).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrInsufficientCredits
}

func (r *CreditRepository) Credit(ctx context.Context, externalID string, amount int64) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET credits = credits + $1, updated_at = now()
		WHERE external_id = $2 AND deleted_at IS NULL
		RETURNING `+accountColumns,
		amount, externalID,
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Credit: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Credit: %w", err)
	}
	return account, nil
}

func (r *CreditRepository) GetBalance(ctx context.Context, externalID string) (int64, error) {
	var credits int64
	err := r.db.QueryRowContext(ctx,
		`SELECT credits FROM accounts WHERE external_id = $1 AND deleted_at IS NULL`,
		externalID,
	).Scan(&credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("GetBalance: %w", domain.ErrNotFound)
		}
		return 0, fmt.Errorf("GetBalance: %w", err)
	}
	return credits, nil
}

// GetHistory returns entries newest-first.
func (r *CreditRepository) GetHistory(ctx context.Context, externalID string, limit int) ([]domain.CreditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+creditEntryColumns+` FROM credit_entries
		WHERE account_external_id = $1 ORDER BY seq DESC LIMIT $2`,
		externalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetHistory: %w", err)
	}
	defer rows.Close()

	var entries []domain.CreditEntry
	for rows.Next() {
		var e domain.CreditEntry
		if err := rows.Scan(
			&e.ID, &e.AccountExternalID, &e.Coin, &e.Strategy,
			&e.CreditsUsed, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("GetHistory: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetHistory: rows: %w", err)
	}
	return entries, nil
}
