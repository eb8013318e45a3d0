package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFinalizePasswordResetHandlerEmitsActivity(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	sink := &MockActivitySink{}

	sink.On("Record", mock.Anything, mock.Anything).Return(nil)

	manager := newTestManager(repo, accounts.WithActivitySink(sink))

	account, err := manager.Save(ctx, newAlice())
	require.NoError(t, err)

	token, err := manager.ForgotPassword(ctx, account)
	require.NoError(t, err)

	handler := accounts.NewFinalizePasswordResetHandler(manager)

	var resp *accounts.FinalizePasswordResetResponse
	err = handler.Execute(ctx, accounts.FinalizePasswordResetMessage{
		Token:                token,
		Password:             "secret2",
		PasswordConfirmation: "secret2",
		OnResponse:           func(r *accounts.FinalizePasswordResetResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, account.ID, resp.Account.ID)

	sink.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e accounts.ActivityEvent) bool {
		return e.EventType == accounts.ActivityEventPasswordResetSuccess && e.AccountID == account.ID.String()
	}))
}

func TestFinalizePasswordResetHandlerRejectsReplay(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	manager := newTestManager(repo)

	account, err := manager.Save(ctx, newAlice())
	require.NoError(t, err)

	token, err := manager.ForgotPassword(ctx, account)
	require.NoError(t, err)

	handler := accounts.NewFinalizePasswordResetHandler(manager)
	msg := accounts.FinalizePasswordResetMessage{
		Token:                token,
		Password:             "secret2",
		PasswordConfirmation: "secret2",
	}

	require.NoError(t, handler.Execute(ctx, msg))

	err = handler.Execute(ctx, msg)
	require.Error(t, err)
	assert.True(t, accounts.IsTokenInvalid(err))
}

func TestFinalizePasswordResetHandlerMismatch(t *testing.T) {
	repo := &MockRepository{}
	handler := accounts.NewFinalizePasswordResetHandler(newTestManager(repo))

	err := handler.Execute(context.Background(), accounts.FinalizePasswordResetMessage{
		Token:                "token-a",
		Password:             "secret2",
		PasswordConfirmation: "secret3",
	})
	require.Error(t, err)
	assert.True(t, accounts.IsPasswordMismatch(err))
	repo.AssertNotCalled(t, "FindByResetToken", mock.Anything, mock.Anything)
}
