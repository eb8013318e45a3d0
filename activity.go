package accounts

import (
	"context"
	"time"
)

// ActivityEventType names an account lifecycle step worth auditing
type ActivityEventType string

const (
	ActivityEventAccountRegistered      ActivityEventType = "account.registered"
	ActivityEventAccountUpdated         ActivityEventType = "account.updated"
	ActivityEventAccountConfirmed       ActivityEventType = "account.confirmed"
	ActivityEventPasswordResetRequested ActivityEventType = "account.password.reset_requested"
	ActivityEventPasswordResetSuccess   ActivityEventType = "account.password.reset"
)

// ActivityEvent describes a lifecycle step. From and To carry the confirmation
// or reset token states when the step is a transition.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	From       string
	To         string
	Metadata   map[string]any
	OccurredAt time.Time
}

func accountEvent(eventType ActivityEventType, account *Account) ActivityEvent {
	return ActivityEvent{
		EventType: eventType,
		Actor:     accountActor(account),
		AccountID: account.ID.String(),
	}
}

func (e ActivityEvent) transition(from, to string) ActivityEvent {
	e.From = from
	e.To = to
	return e
}

// ActivitySink receives lifecycle events. Failures are logged by the Manager
// and never fail the operation that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc lets a plain function act as an ActivitySink
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record calls f, a nil f drops the event
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

func (m *Manager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}
	if err := m.activity.Record(ctx, event); err != nil {
		m.logger.Warn("failed to record activity %s: %v", event.EventType, err)
	}
}

type discardActivity struct{}

func (discardActivity) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return discardActivity{}
	}
	return s
}
