package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_ACCOUNT_STATE"
)

// ErrInvalidTransition is returned when a requested state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to leave a terminal state, e.g. confirmed.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ConfirmationState tracks whether the owner proved control of the email address
type ConfirmationState string

const (
	StateUnconfirmed ConfirmationState = "unconfirmed"
	StateConfirmed   ConfirmationState = "confirmed"
)

// ResetTokenState tracks whether a password reset is outstanding
type ResetTokenState string

const (
	StateNoToken     ResetTokenState = "no_token"
	StateTokenIssued ResetTokenState = "token_issued"
)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

var systemActor = ActorRef{ID: "system", Type: "system"}

func accountActor(account *Account) ActorRef {
	if account.IsNew() {
		return systemActor
	}
	return ActorRef{ID: account.ID.String(), Type: "account"}
}

type transitionTable[S comparable] map[S]map[S]struct{}

func (t transitionTable[S]) allows(from, to S) bool {
	targets, ok := t[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

func (t transitionTable[S]) terminal(state S) bool {
	return len(t[state]) == 0
}

// AccountStateMachine guards the confirmation and reset token lifecycles.
// It only decides whether a change is legal, the Manager applies and
// persists the resulting fields.
type AccountStateMachine struct {
	confirmation transitionTable[ConfirmationState]
	reset        transitionTable[ResetTokenState]
}

// NewAccountStateMachine returns the default transition tables:
//
//	unconfirmed -> confirmed
//	no_token    -> token_issued
//	token_issued -> token_issued (reissue) | no_token (consumed)
func NewAccountStateMachine() *AccountStateMachine {
	return &AccountStateMachine{
		confirmation: transitionTable[ConfirmationState]{
			StateUnconfirmed: {
				StateConfirmed: {},
			},
			StateConfirmed: {},
		},
		reset: transitionTable[ResetTokenState]{
			StateNoToken: {
				StateTokenIssued: {},
				StateNoToken:     {},
			},
			StateTokenIssued: {
				StateTokenIssued: {},
				StateNoToken:     {},
			},
		},
	}
}

// ConfirmationTransition validates moving account to target. It returns
// false without error when the account is already in target.
func (sm *AccountStateMachine) ConfirmationTransition(account *Account, target ConfirmationState) (bool, error) {
	from := account.ConfirmationState()
	if from == target {
		return false, nil
	}

	if sm.confirmation.terminal(from) {
		return false, transitionError(ErrTerminalState, string(from), string(target))
	}

	if !sm.confirmation.allows(from, target) {
		return false, transitionError(ErrInvalidTransition, string(from), string(target))
	}

	return true, nil
}

// ResetTokenTransition validates moving account to target.
func (sm *AccountStateMachine) ResetTokenTransition(account *Account, target ResetTokenState) error {
	from := account.ResetTokenState()
	if !sm.reset.allows(from, target) {
		return transitionError(ErrInvalidTransition, string(from), string(target))
	}
	return nil
}

func transitionError(base *goerrors.Error, from, to string) error {
	return goerrors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithCode(base.Code).
		WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
}
