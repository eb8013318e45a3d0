package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type ConfirmAccountMessage struct {
	Code       string `json:"code" example:"9f86d081884c7d659a2feaa0c55ad015" doc:"Confirmation code sent by email"`
	OnResponse func(resp *ConfirmAccountResponse)
}

func (e ConfirmAccountMessage) Type() string { return "account.confirm" }

type ConfirmAccountResponse struct {
	Account   *Account `json:"-"`
	Found     bool     `json:"found" example:"true" doc:"Has the code been found?"`
	Expired   bool     `json:"expired" example:"false" doc:"Has the code expired?"`
	Confirmed bool     `json:"confirmed" example:"true" doc:"Is the account confirmed?"`
}

type ConfirmAccountHandler struct {
	manager *Manager
}

// NewConfirmAccountHandler returns a handler confirming accounts by code
func NewConfirmAccountHandler(manager *Manager) *ConfirmAccountHandler {
	return &ConfirmAccountHandler{manager: manager}
}

func (h *ConfirmAccountHandler) Execute(ctx context.Context, event ConfirmAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmAccountHandler) execute(ctx context.Context, event ConfirmAccountMessage) error {
	resp := &ConfirmAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, h.manager.Config().OperationTimeout)
	defer cancel()

	account, err := h.manager.ConfirmByCode(ctx, event.Code)
	switch {
	case err == nil:
		resp.Account = account
		resp.Found = true
		resp.Confirmed = true
	// unknown or expired codes are part of the expected flow
	case IsTokenInvalid(err):
		resp.Found = false
	case IsTokenExpired(err):
		resp.Found = true
		resp.Expired = true
	default:
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
