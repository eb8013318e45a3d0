package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Template identifiers understood by Notifier implementations
const (
	TemplateAccountConfirmation = "account_confirmation"
	TemplatePasswordReset       = "password_reset"
)

// Notification is the payload handed to a Notifier
type Notification struct {
	AccountID string
	To        string
	Username  string
	Data      map[string]any
}

// dispatcher sends notifications off the request path. Failures are logged
// and never reach the caller of the operation that triggered them.
type dispatcher struct {
	notifier Notifier
	logger   Logger
	timeout  time.Duration
	sync     bool
	wg       sync.WaitGroup
}

func (d *dispatcher) dispatch(ctx context.Context, templateID string, payload Notification) {
	if d.notifier == nil {
		d.logger.Debug("no notifier configured, dropping %s for %s", templateID, payload.To)
		return
	}

	if d.sync {
		d.send(ctx, templateID, payload)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(ctx, templateID, payload)
	}()
}

func (d *dispatcher) send(ctx context.Context, templateID string, payload Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification %s panicked: %v", templateID, r)
		}
	}()

	if err := d.notifier.Send(ctx, templateID, payload); err != nil {
		d.logger.Error("%v", notificationError(err, templateID, payload.To))
		return
	}

	d.logger.Debug("notification %s sent to %s", templateID, payload.To)
}

func (d *dispatcher) wait() {
	d.wg.Wait()
}

func notificationError(cause error, templateID, to string) error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, fmt.Sprintf("failed to deliver %s notification", templateID)).
		WithTextCode(TextCodeNotificationFailure).
		WithMetadata(map[string]any{
			"template": templateID,
			"to":       to,
		})
}
