package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{name: "valid", username: "sol_trader42", wantErr: nil},
		{name: "minimum length", username: "abc", wantErr: nil},
		{name: "maximum length", username: "abcdefghij0123456789", wantErr: nil},
		{name: "too short", username: "ab", wantErr: ErrInvalidUsername},
		{name: "too long", username: "abcdefghij0123456789x", wantErr: ErrInvalidUsername},
		{name: "empty", username: "", wantErr: ErrInvalidUsername},
		{name: "space", username: "sol trader", wantErr: ErrInvalidUsername},
		{name: "hyphen", username: "sol-trader", wantErr: ErrInvalidUsername},
		{name: "reserved", username: "admin", wantErr: ErrUsernameReserved},
		{name: "reserved mixed case", username: "AdMiN", wantErr: ErrUsernameReserved},
		{name: "reserved brand", username: "tradecove", wantErr: ErrUsernameReserved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWalletAddress(t *testing.T) {
	valid43 := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAs"
	valid44 := valid43 + "m"

	tests := []struct {
		name    string
		address string
		wantErr error
	}{
		{name: "43 chars", address: valid43, wantErr: nil},
		{name: "44 chars", address: valid44, wantErr: nil},
		{name: "too short", address: valid43[:42], wantErr: ErrInvalidWallet},
		{name: "too long", address: valid44 + "m", wantErr: ErrInvalidWallet},
		{name: "empty", address: "", wantErr: ErrInvalidWallet},
		{name: "contains zero", address: "0" + valid43[1:], wantErr: ErrInvalidWallet},
		{name: "contains capital O", address: "O" + valid43[1:], wantErr: ErrInvalidWallet},
		{name: "contains capital I", address: "I" + valid43[1:], wantErr: ErrInvalidWallet},
		{name: "contains lowercase l", address: "l" + valid43[1:], wantErr: ErrInvalidWallet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWalletAddress(tt.address)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewAccountDefaults(t *testing.T) {
	a := NewAccount("user_123", "  Trader@Example.COM ", "Ada", "Lovelace")

	assert.Equal(t, "user_123", a.ExternalID)
	assert.Equal(t, "trader@example.com", a.Email)
	assert.Equal(t, TierFree, a.SubscriptionTier)
	assert.Equal(t, DefaultCredits, a.Credits)
	assert.Empty(t, a.Username)
	assert.Empty(t, a.WalletAddress)
	require.NotNil(t, a.TopCoins)
	assert.Empty(t, a.TopCoins)
	assert.Nil(t, a.DeletedAt)
}

func TestSetUsername(t *testing.T) {
	a := NewAccount("user_123", "trader@example.com", "Ada", "Lovelace")
	a.SetUsername("SolTrader")

	assert.Equal(t, "SolTrader", a.Username)
	assert.Equal(t, "soltrader", a.UsernameLower)
}

func TestNormalizeTopCoins(t *testing.T) {
	tests := []struct {
		name  string
		coins []string
		want  []string
	}{
		{name: "upper-cases", coins: []string{"sol", "Bonk"}, want: []string{"SOL", "BONK"}},
		{
			name:  "dedupes preserving order",
			coins: []string{"SOL", "sol", "BONK", "Sol"},
			want:  []string{"SOL", "BONK"},
		},
		{name: "drops blanks", coins: []string{" ", "SOL", ""}, want: []string{"SOL"}},
		{name: "empty input", coins: []string{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTopCoins(tt.coins))
		})
	}
}
