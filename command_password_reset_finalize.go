package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Token                string `json:"token" example:"9f86d081884c7d659a2feaa0c55ad015" doc:"Reset password token"`
	Password             string `json:"password" example:"some_secret" doc:"Password"`
	PasswordConfirmation string `json:"password_confirmation" example:"some_secret" doc:"Password confirmation"`
	OnResponse           func(resp *FinalizePasswordResetResponse)
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset.finalize" }

type FinalizePasswordResetResponse struct {
	Account *Account
	Success bool
}

type FinalizePasswordResetHandler struct {
	manager *Manager
}

// NewFinalizePasswordResetHandler returns a handler consuming reset tokens
func NewFinalizePasswordResetHandler(manager *Manager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{manager: manager}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.manager.Config().OperationTimeout)
	defer cancel()

	account, err := h.manager.ResetPasswordWithToken(ctx, event.Token, event.Password, event.PasswordConfirmation)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&FinalizePasswordResetResponse{
			Account: account,
			Success: true,
		})
	}

	return nil
}
