package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinwise/internal/amqp"
	"coinwise/internal/storage"
)

type fakeRecorder struct {
	events []storage.EntryEvent
	err    error
}

func (f *fakeRecorder) RecordEntryEvent(ctx context.Context, ev storage.EntryEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestHandleEntryEvent(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewAuditWorker(rec)

	msg := amqp.NewEntryEventMessage("e1", "u1", "created", time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC))
	if err := w.HandleEntryEvent(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(rec.events))
	}
	got := rec.events[0]
	if got.EntryID != "e1" || got.UserID != "u1" || got.Action != "created" {
		t.Errorf("event = %+v", got)
	}
}

func TestHandleEntryEventRejectsMissingIdentifiers(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewAuditWorker(rec)

	tests := []amqp.EntryEventMessage{
		{UserID: "u1", Action: "created"},
		{EntryID: "e1", Action: "created"},
	}
	for _, msg := range tests {
		if err := w.HandleEntryEvent(context.Background(), msg); err == nil {
			t.Errorf("message %+v accepted, want error", msg)
		}
	}
	if len(rec.events) != 0 {
		t.Error("malformed messages must not be recorded")
	}
}

func TestHandleEntryEventPropagatesRecorderError(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db locked")}
	w := NewAuditWorker(rec)

	msg := amqp.NewEntryEventMessage("e1", "u1", "deleted", time.Now())
	if err := w.HandleEntryEvent(context.Background(), msg); err == nil {
		t.Fatal("expected the recorder error to surface for requeue")
	}
}
