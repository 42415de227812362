package storage

import (
	"time"
	"unicode/utf8"
)

// MaxTitleLength is the longest title, in characters, a conversation keeps.
const MaxTitleLength = 255

// Message types.
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID            int64
	UserID        int64
	Title         string
	Platform      string
	Model         string
	SystemMessage string
	CreateTime    time.Time
	UpdateTime    time.Time
}

// ConversationSummary is a Conversation with its latest message content,
// empty when there is none.
type ConversationSummary struct {
	Conversation
	LastMessage string
}

// Message is a single turn within a conversation.
type Message struct {
	ID             int64
	ConversationID int64
	UserID         int64
	Type           string
	Model          string
	Content        string
	CreateTime     time.Time
}

// TruncateTitle cuts title to MaxTitleLength characters.
func TruncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxTitleLength])
}
