package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Conversation is one row of the conversation list.
type Conversation struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	UpdateTime  time.Time `json:"update_time"`
	LastMessage *string   `json:"last_message"`
}

// Message is one stored turn.
type Message struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	ConversationID int64  `json:"conversation_id"`
	Type           string `json:"type"`
}

// CreateConversation opens an empty conversation and returns its id.
func (c *Client) CreateConversation(ctx context.Context, platform string) (int64, error) {
	var id int64
	err := c.doEnvelope(ctx, http.MethodPost, "chat/conversations", map[string]string{"platform": platform}, &id)
	return id, err
}

// ListConversations returns the caller's conversations, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.doEnvelope(ctx, http.MethodGet, "chat/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ListMessages returns a conversation's messages in order.
func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	q := url.Values{}
	q.Set("conversation_id", strconv.FormatInt(conversationID, 10))

	var msgs []Message
	if err := c.doEnvelope(ctx, http.MethodGet, "chat/messages?"+q.Encode(), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
