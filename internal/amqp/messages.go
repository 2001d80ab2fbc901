package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryEventMessage is a lightweight entry-change notification. It carries
// identifiers only; consumers fetch whatever detail they need themselves.
type EntryEventMessage struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"` // created | updated | deleted
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEntryEventMessage(entryID, userID, action string, occurredAt time.Time) EntryEventMessage {
	return EntryEventMessage{
		EntryID:    entryID,
		UserID:     userID,
		Action:     action,
		OccurredAt: occurredAt,
	}
}

func (m EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryEventMessageFromJSON(data []byte) (EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return EntryEventMessage{}, fmt.Errorf("unmarshal entry event: %w", err)
	}
	return msg, nil
}
