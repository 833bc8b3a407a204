package domain

import (
	"regexp"
	"strings"
	"time"
)

type SubscriptionTier string

const (
	TierFree  SubscriptionTier = "free"
	TierBasic SubscriptionTier = "basic"
)

func (t SubscriptionTier) IsValid() bool {
	return t == TierFree || t == TierBasic
}

const (
	DefaultCredits   int64 = 10
	MaxTopCoins            = 3
	MaxCreditHistory       = 50
)

// Account is one platform user, keyed by the identity provider's id.
// Username and WalletAddress use "" as the unclaimed sentinel so the
// partial unique indexes ignore them.
type Account struct {
	ExternalID         string
	Email              string
	FirstName          string
	LastName           string
	Username           string
	UsernameLower      string
	WalletAddress      string
	BillingCustomerRef string
	SubscriptionTier   SubscriptionTier
	Credits            int64
	TopCoins           []string
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewAccount applies all field defaults for a first-seen identity.
// Defaults live here, not in the schema, so an explicit zero credit
// balance stays distinguishable from "use the default".
func NewAccount(externalID, email, firstName, lastName string) *Account {
	now := time.Now().UTC()
	return &Account{
		ExternalID:       externalID,
		Email:            NormalizeEmail(email),
		FirstName:        firstName,
		LastName:         lastName,
		SubscriptionTier: TierFree,
		Credits:          DefaultCredits,
		TopCoins:         []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (a *Account) SetUsername(username string) {
	a.Username = username
	a.UsernameLower = strings.ToLower(username)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var usernamePattern = regexp.MustCompile(`^\w{3,20}$`)

var reservedUsernames = map[string]struct{}{
	"admin":     {},
	"root":      {},
	"system":    {},
	"support":   {},
	"moderator": {},
	"tradecove": {},
	"api":       {},
	"www":       {},
	"help":      {},
	"about":     {},
	"settings":  {},
	"billing":   {},
	"null":      {},
	"undefined": {},
}

// ValidateUsername enforces the format rule and the reserved-word
// denylist. The denylist check is case-insensitive.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	if _, ok := reservedUsernames[strings.ToLower(username)]; ok {
		return ErrUsernameReserved
	}
	return nil
}

// Base58 without the visually ambiguous 0, O, I and l.
var walletPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{43,44}$`)

func ValidateWalletAddress(address string) error {
	if !walletPattern.MatchString(address) {
		return ErrInvalidWallet
	}
	return nil
}

// NormalizeTopCoins upper-cases tickers and drops duplicates while
// preserving first-seen order. Length and emptiness are the caller's
// problem; this only canonicalizes.
func NormalizeTopCoins(coins []string) []string {
	out := make([]string, 0, len(coins))
	seen := make(map[string]struct{}, len(coins))
	for _, c := range coins {
		ticker := strings.ToUpper(strings.TrimSpace(c))
		if ticker == "" {
			continue
		}
		if _, ok := seen[ticker]; ok {
			continue
		}
		seen[ticker] = struct{}{}
		out = append(out, ticker)
	}
	return out
}
