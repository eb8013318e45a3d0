package accounts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConfirmAccountHandler(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	manager := newTestManager(repo)

	account, err := manager.Save(ctx, newAlice())
	require.NoError(t, err)

	handler := accounts.NewConfirmAccountHandler(manager)

	var resp *accounts.ConfirmAccountResponse
	err = handler.Execute(ctx, accounts.ConfirmAccountMessage{
		Code:       account.ConfirmationCode,
		OnResponse: func(r *accounts.ConfirmAccountResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Found)
	assert.True(t, resp.Confirmed)
	assert.False(t, resp.Expired)
	assert.Equal(t, account.ID, resp.Account.ID)

	err = handler.Execute(ctx, accounts.ConfirmAccountMessage{
		Code:       account.ConfirmationCode,
		OnResponse: func(r *accounts.ConfirmAccountResponse) { resp = r },
	})
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.False(t, resp.Confirmed)
}

func TestConfirmAccountHandlerExpiredCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	clock := newFakeClock()
	manager := newTestManager(repo,
		accounts.WithClock(clock.Now),
		accounts.WithConfig(accounts.Config{ConfirmationCodeTTL: time.Hour}),
	)

	account, err := manager.Save(ctx, newAlice())
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)

	var resp *accounts.ConfirmAccountResponse
	err = accounts.NewConfirmAccountHandler(manager).Execute(ctx, accounts.ConfirmAccountMessage{
		Code:       account.ConfirmationCode,
		OnResponse: func(r *accounts.ConfirmAccountResponse) { resp = r },
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Found)
	assert.True(t, resp.Expired)
	assert.False(t, resp.Confirmed)
}

func TestConfirmAccountHandlerStorageFailure(t *testing.T) {
	repo := &MockRepository{}
	repo.On("FindByConfirmationCode", mock.Anything, "code-1").
		Return(nil, errors.New("connection reset")).Once()

	handler := accounts.NewConfirmAccountHandler(newTestManager(repo))

	err := handler.Execute(context.Background(), accounts.ConfirmAccountMessage{Code: "code-1"})
	require.Error(t, err)
	assert.True(t, accounts.IsPersistence(err))
	repo.AssertExpectations(t)
}
