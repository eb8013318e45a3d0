package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountStateMachineConfirmsUnconfirmedAccount(t *testing.T) {
	sm := accounts.NewAccountStateMachine()
	account := &accounts.Account{ID: uuid.New()}

	changed, err := sm.ConfirmationTransition(account, accounts.StateConfirmed)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestAccountStateMachineConfirmedIsNoop(t *testing.T) {
	sm := accounts.NewAccountStateMachine()
	account := &accounts.Account{ID: uuid.New(), Confirmed: true}

	changed, err := sm.ConfirmationTransition(account, accounts.StateConfirmed)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestAccountStateMachineConfirmedIsTerminal(t *testing.T) {
	sm := accounts.NewAccountStateMachine()
	account := &accounts.Account{ID: uuid.New(), Confirmed: true}

	changed, err := sm.ConfirmationTransition(account, accounts.StateUnconfirmed)
	require.Error(t, err)
	assert.False(t, changed)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, accounts.ErrTerminalState.TextCode, richErr.TextCode)
	assert.Equal(t, "confirmed", richErr.Metadata["from"])
	assert.Equal(t, "unconfirmed", richErr.Metadata["to"])
}

func TestAccountStateMachineResetTokenTransitions(t *testing.T) {
	sm := accounts.NewAccountStateMachine()

	tests := []struct {
		name    string
		account *accounts.Account
		target  accounts.ResetTokenState
	}{
		{
			name:    "issue",
			account: &accounts.Account{ID: uuid.New()},
			target:  accounts.StateTokenIssued,
		},
		{
			name:    "reissue",
			account: &accounts.Account{ID: uuid.New(), ResetToken: "token-a"},
			target:  accounts.StateTokenIssued,
		},
		{
			name:    "consume",
			account: &accounts.Account{ID: uuid.New(), ResetToken: "token-a"},
			target:  accounts.StateNoToken,
		},
		{
			name:    "direct reset without token",
			account: &accounts.Account{ID: uuid.New()},
			target:  accounts.StateNoToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, sm.ResetTokenTransition(tt.account, tt.target))
		})
	}
}

func TestAccountStateMachineRejectsUnknownResetState(t *testing.T) {
	sm := accounts.NewAccountStateMachine()

	err := sm.ResetTokenTransition(&accounts.Account{ID: uuid.New()}, accounts.ResetTokenState("revoked"))
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, accounts.ErrInvalidTransition.TextCode, richErr.TextCode)
}

func TestAccountStates(t *testing.T) {
	assert.Equal(t, accounts.StateUnconfirmed, (&accounts.Account{}).ConfirmationState())
	assert.Equal(t, accounts.StateConfirmed, (&accounts.Account{Confirmed: true}).ConfirmationState())
	assert.Equal(t, accounts.StateNoToken, (&accounts.Account{}).ResetTokenState())
	assert.Equal(t, accounts.StateTokenIssued, (&accounts.Account{ResetToken: "t"}).ResetTokenState())
}
