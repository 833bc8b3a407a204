package testutil

import (
	"database/sql"
	"testing"

	"github.com/tradecove/tradecove-api/internal/domain"
)

// SeedAccount inserts an account with all defaults applied, returning
// the stored value.
func SeedAccount(t *testing.T, db *sql.DB, externalID, email string) *domain.Account {
	t.Helper()

	a := domain.NewAccount(externalID, email, "Test", "Trader")
	insertAccount(t, db, a)
	return a
}

// SeedAccountWithCredits seeds an account with an explicit balance.
// Zero is a real balance here, not "use the default".
func SeedAccountWithCredits(t *testing.T, db *sql.DB, externalID, email string, credits int64) *domain.Account {
	t.Helper()

	a := domain.NewAccount(externalID, email, "Test", "Trader")
	a.Credits = credits
	insertAccount(t, db, a)
	return a
}

func insertAccount(t *testing.T, db *sql.DB, a *domain.Account) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO accounts (
			external_id, email, first_name, last_name, username, username_lower,
			wallet_address, billing_customer_ref, subscription_tier, credits, top_coins,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '{}', $11, $12)`,
		a.ExternalID, a.Email, a.FirstName, a.LastName, a.Username, a.UsernameLower,
		a.WalletAddress, a.BillingCustomerRef, a.SubscriptionTier, a.Credits,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", a.ExternalID, err)
	}
}

func GetCredits(t *testing.T, db *sql.DB, externalID string) int64 {
	t.Helper()

	var credits int64
	err := db.QueryRow(`SELECT credits FROM accounts WHERE external_id = $1`, externalID).Scan(&credits)
	if err != nil {
		t.Fatalf("get credits %s: %v", externalID, err)
	}
	return credits
}

func CountCreditEntries(t *testing.T, db *sql.DB, externalID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM credit_entries WHERE account_external_id = $1`, externalID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count credit entries %s: %v", externalID, err)
	}
	return count
}

func CountAccounts(t *testing.T, db *sql.DB, externalID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM accounts WHERE external_id = $1`, externalID).Scan(&count)
	if err != nil {
		t.Fatalf("count accounts %s: %v", externalID, err)
	}
	return count
}
