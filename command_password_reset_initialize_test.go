package accounts_test

import (
	"context"
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInitializePasswordResetHandler(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	notifier := &recordingNotifier{}
	manager := newTestManager(repo, accounts.WithNotifier(notifier))

	_, err := manager.Save(ctx, newAlice())
	require.NoError(t, err)

	handler := accounts.NewInitializePasswordResetHandler(manager).WithLogger(testLogger{})

	var resp *accounts.InitializePasswordResetResponse
	err = handler.Execute(ctx, accounts.InitializePasswordResetMessage{
		Email:      "alice@example.com",
		OnResponse: func(r *accounts.InitializePasswordResetResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)

	sent := notifier.last()
	assert.Equal(t, accounts.TemplatePasswordReset, sent.templateID)

	token, _ := sent.payload.Data["reset_token"].(string)
	require.NotEmpty(t, token)

	stored, err := repo.FindByResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username)
}

func TestInitializePasswordResetHandlerUnknownEmail(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	notifier := &recordingNotifier{}
	handler := accounts.NewInitializePasswordResetHandler(newTestManager(repo, accounts.WithNotifier(notifier))).
		WithLogger(testLogger{})

	var resp *accounts.InitializePasswordResetResponse
	err := handler.Execute(ctx, accounts.InitializePasswordResetMessage{
		Email:      "nobody@example.com",
		OnResponse: func(r *accounts.InitializePasswordResetResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, notifier.count())
}

func TestInitializePasswordResetHandlerMatchesEmailOnly(t *testing.T) {
	repo := &MockRepository{}
	repo.On("FindByIdentity", mock.Anything, map[string]string{"email": "alice"}, []string{"email"}).
		Return(nil, accounts.NotFoundError(nil)).Once()

	handler := accounts.NewInitializePasswordResetHandler(newTestManager(repo)).WithLogger(testLogger{})

	require.NoError(t, handler.Execute(context.Background(), accounts.InitializePasswordResetMessage{Email: "alice"}))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "StoreResetToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitializePasswordResetHandlerErrors(t *testing.T) {
	handler := accounts.NewInitializePasswordResetHandler(newTestManager(&MockRepository{}))

	err := handler.Execute(context.Background(), accounts.InitializePasswordResetMessage{Email: "  "})
	assert.Error(t, err)

	repo := &MockRepository{}
	repo.On("FindByIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	err = accounts.NewInitializePasswordResetHandler(newTestManager(repo)).
		Execute(context.Background(), accounts.InitializePasswordResetMessage{Email: "alice@example.com"})
	require.Error(t, err)
	assert.True(t, accounts.IsPersistence(err))
}
