// Package storage defines how conversations and their messages are
// persisted by the chat backend.
package storage

import "context"

// Driver persists conversations and messages.
type Driver interface {
	// CreateConversation stores conv, assigning its ID and timestamps.
	CreateConversation(ctx context.Context, conv *Conversation) (*Conversation, error)

	// GetConversation returns the conversation regardless of owner.
	GetConversation(ctx context.Context, id int64) (*Conversation, error)

	// ListConversations returns the user's conversations, most recently
	// updated first, each with the content of its latest message.
	ListConversations(ctx context.Context, userID int64) ([]*ConversationSummary, error)

	// UpdateConversationTitle sets the title, truncated to MaxTitleLength
	// characters.
	UpdateConversationTitle(ctx context.Context, id int64, title string) error

	// AddMessage appends msg to its conversation and bumps the
	// conversation's update time.
	AddMessage(ctx context.Context, msg *Message) (*Message, error)

	// History returns every message of a conversation in insertion order.
	History(ctx context.Context, conversationID int64) ([]*Message, error)

	// ListMessages is History restricted to a conversation owned by userID.
	ListMessages(ctx context.Context, conversationID, userID int64) ([]*Message, error)

	// Close closes the store and releases any resources.
	Close() error
}
