package accounts_test

import (
	"context"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Exists(ctx context.Context, query accounts.IdentityQuery) (bool, error) {
	args := m.Called(ctx, query)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) FindByIdentity(ctx context.Context, credentials map[string]string, identityColumns ...string) (*accounts.Account, error) {
	args := m.Called(ctx, credentials, identityColumns)
	if acc := args.Get(0); acc != nil {
		return acc.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindByConfirmationCode(ctx context.Context, code string) (*accounts.Account, error) {
	args := m.Called(ctx, code)
	if acc := args.Get(0); acc != nil {
		return acc.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) FindByResetToken(ctx context.Context, token string) (*accounts.Account, error) {
	args := m.Called(ctx, token)
	if acc := args.Get(0); acc != nil {
		return acc.(*accounts.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) Persist(ctx context.Context, account *accounts.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockRepository) StoreResetToken(ctx context.Context, account *accounts.Account, token string, issuedAt time.Time) error {
	args := m.Called(ctx, account, token, issuedAt)
	return args.Error(0)
}

func (m *MockRepository) ClearResetTokenAndSetPassword(ctx context.Context, account *accounts.Account, passwordHash string) error {
	args := m.Called(ctx, account, passwordHash)
	return args.Error(0)
}

type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) ComparePasswordAndHash(password, hash string) error {
	args := m.Called(password, hash)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, templateID string, payload accounts.Notification) error {
	args := m.Called(ctx, templateID, payload)
	return args.Error(0)
}

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event accounts.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// plainHasher avoids bcrypt cost in tests that do not care about hashing
type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", accounts.ErrNoEmptyString
	}
	return "hashed:" + password, nil
}

func (plainHasher) ComparePasswordAndHash(password, hash string) error {
	if hash != "hashed:"+password {
		return accounts.ErrMismatchedHashAndPassword
	}
	return nil
}

func sequentialTokens(prefix string) accounts.TokenGenerator {
	n := 0
	return func() (string, error) {
		n++
		return prefix + string(rune('a'+n-1)), nil
	}
}
