package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := accounts.HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)
	assert.NoError(t, accounts.ComparePasswordAndHash("correct-horse", hash))

	again, err := accounts.HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "bcrypt salts every hash")

	_, err = accounts.HashPassword("")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
}

func TestBcryptHasherCompare(t *testing.T) {
	hasher := accounts.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.HashPassword("secret1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "matching password",
			password: "secret1",
			hash:     hash,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:     "wrong password",
			password: "secret2",
			hash:     hash,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
			},
		},
		{
			name:     "malformed hash",
			password: "secret1",
			hash:     "not-a-bcrypt-hash",
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.NotErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
			},
		},
		{
			name:     "empty hash",
			password: "secret1",
			hash:     "",
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, hasher.ComparePasswordAndHash(tt.password, tt.hash))
		})
	}
}

func TestBcryptHasherCost(t *testing.T) {
	hasher := accounts.NewBcryptHasher(bcrypt.MinCost)
	assert.Equal(t, bcrypt.MinCost, hasher.Cost)

	hash, err := hasher.HashPassword("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, err = hasher.HashPassword("")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)

	var zero accounts.BcryptHasher
	hash, err = zero.HashPassword("secret1")
	require.NoError(t, err)
	assert.NoError(t, zero.ComparePasswordAndHash("secret1", hash))
}

func TestNewBcryptHasherOutOfRangeCost(t *testing.T) {
	for _, cost := range []int{-1, 0, bcrypt.MaxCost + 1} {
		hasher := accounts.NewBcryptHasher(cost)
		assert.GreaterOrEqual(t, hasher.Cost, bcrypt.MinCost)
		assert.LessOrEqual(t, hasher.Cost, bcrypt.MaxCost)
	}
}
