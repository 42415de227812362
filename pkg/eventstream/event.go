// Package eventstream describes the events the chat backend emits once an
// assistant reply has been stored, and the Publisher that ships them.
package eventstream

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMessagePersisted is emitted after an assistant message is stored.
	EventTypeMessagePersisted = "consolechat.message.persisted"
)

// MessagePersistedEvent is a transport-neutral event payload for a stored
// assistant reply. The content itself is not included.
type MessagePersistedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	ConversationID int64     `json:"conversation_id"`
	MessageID      int64     `json:"message_id"`
	UserID         int64     `json:"user_id"`
	Platform       string    `json:"platform"`
	Model          string    `json:"model"`
	ContentLength  int       `json:"content_length"`
}

// MessageMeta is the input to NewMessagePersistedEvent.
type MessageMeta struct {
	ConversationID int64
	MessageID      int64
	UserID         int64
	Platform       string
	Model          string
	Content        string
}

// NewMessagePersistedEvent stamps a fresh event id and emission time.
func NewMessagePersistedEvent(m MessageMeta) *MessagePersistedEvent {
	return &MessagePersistedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeMessagePersisted,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		ConversationID: m.ConversationID,
		MessageID:      m.MessageID,
		UserID:         m.UserID,
		Platform:       m.Platform,
		Model:          m.Model,
		ContentLength:  utf8.RuneCountInString(m.Content),
	}
}
