package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestIsWithinPeriod(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		issuedAt time.Time
		period   time.Duration
		expected bool
	}{
		{
			name:     "issued half an hour ago",
			issuedAt: now.Add(-30 * time.Minute),
			period:   time.Hour,
			expected: true,
		},
		{
			name:     "issued before the window",
			issuedAt: now.Add(-90 * time.Minute),
			period:   time.Hour,
			expected: false,
		},
		{
			name:     "exactly at the boundary",
			issuedAt: now.Add(-24 * time.Hour),
			period:   24 * time.Hour,
			expected: false,
		},
		{
			name:     "one second inside the boundary",
			issuedAt: now.Add(-24*time.Hour + time.Second),
			period:   24 * time.Hour,
			expected: true,
		},
		{
			name:     "issued in the future",
			issuedAt: now.Add(time.Minute),
			period:   time.Hour,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, accounts.IsWithinPeriod(tt.issuedAt, tt.period, now))
		})
	}
}

func TestExpiresAt(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	at, ok := accounts.ExpiresAt(issuedAt, 24*time.Hour)
	assert.True(t, ok)
	assert.Equal(t, issuedAt.Add(24*time.Hour), at)

	_, ok = accounts.ExpiresAt(issuedAt, 0)
	assert.False(t, ok)

	_, ok = accounts.ExpiresAt(issuedAt, -time.Hour)
	assert.False(t, ok)
}

func TestExpiresAtMatchesResetTokenExpiry(t *testing.T) {
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 2 * time.Hour
	account := &accounts.Account{ResetToken: "token-1", ResetTokenIssuedAt: &issuedAt}

	at, ok := accounts.ExpiresAt(issuedAt, ttl)
	assert.True(t, ok)

	assert.False(t, account.ResetTokenExpired(ttl, at.Add(-time.Second)))
	assert.True(t, account.ResetTokenExpired(ttl, at))
}
