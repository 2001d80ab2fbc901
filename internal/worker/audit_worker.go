package worker

import (
	"context"
	"fmt"
	"log/slog"

	"coinwise/internal/amqp"
	"coinwise/internal/storage"
)

// EventRecorder is the worker's port onto the audit trail.
type EventRecorder interface {
	RecordEntryEvent(ctx context.Context, ev storage.EntryEvent) error
}

// AuditWorker persists entry-change events from the queue into the
// audit trail. Recording is idempotent enough for at-least-once
// delivery: a redelivered event produces a duplicate row, which the
// trail tolerates.
type AuditWorker struct {
	recorder EventRecorder
}

func NewAuditWorker(recorder EventRecorder) *AuditWorker {
	return &AuditWorker{recorder: recorder}
}

// HandleEntryEvent records one entry-change event. Errors propagate to
// the consumer, which requeues the delivery.
func (w *AuditWorker) HandleEntryEvent(ctx context.Context, msg amqp.EntryEventMessage) error {
	if msg.EntryID == "" || msg.UserID == "" {
		return fmt.Errorf("entry event missing identifiers: entry_id=%q user_id=%q", msg.EntryID, msg.UserID)
	}

	err := w.recorder.RecordEntryEvent(ctx, storage.EntryEvent{
		EntryID:    msg.EntryID,
		UserID:     msg.UserID,
		Action:     msg.Action,
		OccurredAt: msg.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record entry event: %w", err)
	}

	slog.InfoContext(ctx, "Recorded entry event",
		"entry_id", msg.EntryID,
		"user_id", msg.UserID,
		"action", msg.Action)
	return nil
}
