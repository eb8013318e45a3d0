package accounts

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"alice@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "account.password_reset" }

// InitializePasswordResetResponse reports success for unknown emails too, so
// callers cannot learn which addresses have accounts.
type InitializePasswordResetResponse struct {
	Success bool
}

type InitializePasswordResetHandler struct {
	manager *Manager
	logger  Logger
}

// NewInitializePasswordResetHandler returns a handler issuing reset tokens
func NewInitializePasswordResetHandler(manager *Manager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		manager: manager,
		logger:  defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, h.manager.Config().OperationTimeout)
	defer cancel()

	email := strings.TrimSpace(event.Email)
	if email == "" {
		return goerrors.New("email is required for password reset", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	account, err := h.manager.FindByIdentity(ctx, map[string]string{"email": email}, "email")
	if err != nil {
		if !IsNotFound(err) {
			return err
		}
		h.logger.Debug("password reset requested for unknown email %s", email)
	} else if _, err := h.manager.ForgotPassword(ctx, account); err != nil {
		return err
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
