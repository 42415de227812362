// Package inmemory is a storage.Driver backed by maps. It is the default
// store when no database is configured and the fixture of choice in tests.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/consolechat/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every field below
	mu sync.RWMutex

	conversations map[int64]*storage.Conversation

	// messages holds each conversation's messages in insertion order
	messages map[int64][]*storage.Message

	nextConversationID int64
	nextMessageID      int64

	now func() time.Time
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		conversations: make(map[int64]*storage.Conversation),
		messages:      make(map[int64][]*storage.Message),
		now:           time.Now,
	}
}

func (s *Driver) CreateConversation(_ context.Context, conv *storage.Conversation) (*storage.Conversation, error) {
	if conv == nil {
		return nil, storage.ErrNilRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextConversationID++
	now := s.now()

	stored := *conv
	stored.ID = s.nextConversationID
	stored.Title = storage.TruncateTitle(stored.Title)
	stored.CreateTime = now
	stored.UpdateTime = now
	s.conversations[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *Driver) GetConversation(_ context.Context, id int64) (*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, storage.NotFoundError{ConversationID: id}
	}

	out := *conv
	return &out, nil
}

func (s *Driver) ListConversations(_ context.Context, userID int64) ([]*storage.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*storage.ConversationSummary{}
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}

		summary := &storage.ConversationSummary{Conversation: *conv}
		if msgs := s.messages[conv.ID]; len(msgs) > 0 {
			summary.LastMessage = msgs[len(msgs)-1].Content
		}
		result = append(result, summary)
	}

	slices.SortFunc(result, func(a, b *storage.ConversationSummary) int {
		if c := b.UpdateTime.Compare(a.UpdateTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	return result, nil
}

func (s *Driver) UpdateConversationTitle(_ context.Context, id int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return storage.NotFoundError{ConversationID: id}
	}

	conv.Title = storage.TruncateTitle(title)
	return nil
}

func (s *Driver) AddMessage(_ context.Context, msg *storage.Message) (*storage.Message, error) {
	if msg == nil {
		return nil, storage.ErrNilRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return nil, storage.NotFoundError{ConversationID: msg.ConversationID}
	}

	s.nextMessageID++
	now := s.now()

	stored := *msg
	stored.ID = s.nextMessageID
	stored.CreateTime = now
	s.messages[conv.ID] = append(s.messages[conv.ID], &stored)
	conv.UpdateTime = now

	out := stored
	return &out, nil
}

func (s *Driver) History(_ context.Context, conversationID int64) ([]*storage.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}

	return s.copyMessages(conversationID), nil
}

func (s *Driver) ListMessages(_ context.Context, conversationID, userID int64) ([]*storage.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}

	return s.copyMessages(conversationID), nil
}

// copyMessages must be called with mu held.
func (s *Driver) copyMessages(conversationID int64) []*storage.Message {
	msgs := s.messages[conversationID]
	out := make([]*storage.Message, 0, len(msgs))
	for _, m := range msgs {
		c := *m
		out = append(out, &c)
	}
	return out
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}
