package activitymap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := accounts.ActivityEvent{
		EventType: accounts.ActivityEventAccountConfirmed,
		Actor:     accounts.ActorRef{ID: "account-100", Type: "account"},
		AccountID: "account-100",
		From:      string(accounts.StateUnconfirmed),
		To:        string(accounts.StateConfirmed),
		Metadata: map[string]any{
			"source": "email",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "account-100" {
		t.Fatalf("expected actor_id account-100, got %q", out.ActorID)
	}
	if out.Verb != string(accounts.ActivityEventAccountConfirmed) {
		t.Fatalf("expected verb %q, got %q", accounts.ActivityEventAccountConfirmed, out.Verb)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "account-100" {
		t.Fatalf("expected object_id account-100, got %q", out.ObjectID)
	}
	if out.Channel != "accounts" {
		t.Fatalf("expected channel accounts, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["source"] != "email" {
		t.Fatalf("expected metadata source email, got %#v", out.Metadata["source"])
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "account" {
		t.Fatalf("expected actor_type account, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyFromState] != "unconfirmed" {
		t.Fatalf("expected from_state unconfirmed, got %#v", out.Metadata[activitymap.MetadataKeyFromState])
	}
	if out.Metadata[activitymap.MetadataKeyToState] != "confirmed" {
		t.Fatalf("expected to_state confirmed, got %#v", out.Metadata[activitymap.MetadataKeyToState])
	}

	if _, exists := event.Metadata[activitymap.MetadataKeyActorType]; exists {
		t.Fatalf("expected source metadata to stay untouched")
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	out := activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventAccountRegistered,
	}, activitymap.WithClock(func() time.Time { return ts }), activitymap.WithChannel("audit"))

	if out.ActorID != "system" {
		t.Fatalf("expected system actor, got %q", out.ActorID)
	}
	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected clock fallback %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", out.Metadata)
	}

	out = activitymap.Normalize(accounts.ActivityEvent{AccountID: "account-7"}, activitymap.WithObjectType("credential"))
	if out.ActorID != "account-7" {
		t.Fatalf("expected account fallback actor, got %q", out.ActorID)
	}
	if out.ObjectType != "credential" {
		t.Fatalf("expected object_type credential, got %q", out.ObjectType)
	}
}

func TestSinkPublishesRecords(t *testing.T) {
	t.Parallel()

	var got []activitymap.Record
	failure := errors.New("bus offline")

	sink := activitymap.Sink(func(_ context.Context, record activitymap.Record) error {
		got = append(got, record)
		if record.Verb == string(accounts.ActivityEventPasswordResetSuccess) {
			return failure
		}
		return nil
	})

	if err := sink.Record(context.Background(), accounts.ActivityEvent{
		EventType: accounts.ActivityEventPasswordResetRequested,
		AccountID: "account-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := sink.Record(context.Background(), accounts.ActivityEvent{
		EventType: accounts.ActivityEventPasswordResetSuccess,
		AccountID: "account-1",
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected publish error, got %v", err)
	}

	if len(got) != 2 || got[0].ObjectID != "account-1" {
		t.Fatalf("unexpected records %#v", got)
	}

	if err := activitymap.Sink(nil).Record(context.Background(), accounts.ActivityEvent{}); err != nil {
		t.Fatalf("expected nil publisher to be a no-op, got %v", err)
	}
}
