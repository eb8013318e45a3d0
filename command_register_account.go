package accounts

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type RegisterAccountMessage struct {
	Username             string `json:"username" example:"alice" doc:"Account username, derived from the email when empty."`
	Email                string `json:"email" example:"alice@example.com" doc:"Account email."`
	Password             string `json:"password" example:"secret1" doc:"Password"`
	PasswordConfirmation string `json:"password_confirmation" example:"secret1" doc:"Password confirmation"`
	OnResponse           func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Account *Account
	Success bool
}

type RegisterAccountHandler struct {
	manager *Manager
}

// NewRegisterAccountHandler returns a handler registering accounts through manager
func NewRegisterAccountHandler(manager *Manager) *RegisterAccountHandler {
	return &RegisterAccountHandler{manager: manager}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.manager.Config().OperationTimeout)
	defer cancel()

	account := &Account{
		Username:             getUsername(event.Username, event.Email),
		Email:                strings.TrimSpace(event.Email),
		Password:             event.Password,
		PasswordConfirmation: event.PasswordConfirmation,
	}

	saved, err := h.manager.Save(ctx, account)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			Account: saved,
			Success: true,
		})
	}

	return nil
}

func getUsername(username, email string) string {
	if username = strings.TrimSpace(username); username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(strings.TrimSpace(email), "@")[0]
	}

	return username
}
