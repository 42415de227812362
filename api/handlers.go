package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/storage"
)

// NewConversationTitle is the title a conversation keeps until its first
// message arrives.
const NewConversationTitle = "New conversation"

type createConversationRequest struct {
	Platform string `json:"platform"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateConversation opens an empty conversation for the caller and
// returns its id.
func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	var req createConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	platform := s.resolvePlatform(req.Platform)
	conv, err := s.driver.CreateConversation(c.Context(), &storage.Conversation{
		UserID:        principal(c).UserID,
		Title:         NewConversationTitle,
		Platform:      platform.String(),
		Model:         platform.DefaultModel(),
		SystemMessage: s.config.SystemPrompt,
	})
	if err != nil {
		s.logger.Error("failed to create conversation", "error", err)
		return respError(c, fiber.StatusInternalServerError, "failed to create conversation")
	}

	return respSuccess(c, conv.ID)
}

// handleListConversations returns the caller's conversations, most recently
// updated first.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	convs, err := s.driver.ListConversations(c.Context(), principal(c).UserID)
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		return respError(c, fiber.StatusInternalServerError, "failed to list conversations")
	}

	views := make([]ConversationView, 0, len(convs))
	for _, conv := range convs {
		v := ConversationView{
			ID:         conv.ID,
			Title:      conv.Title,
			UpdateTime: conv.UpdateTime.UTC().Format(time.RFC3339),
		}
		if conv.LastMessage != "" {
			last := conv.LastMessage
			v.LastMessage = &last
		}
		views = append(views, v)
	}

	return respSuccess(c, views)
}

// handleListMessages returns the caller's messages in a conversation.
func (s *Server) handleListMessages(c *fiber.Ctx) error {
	raw := c.Query("conversation_id")
	if raw == "" {
		return respError(c, fiber.StatusBadRequest, "conversation_id parameter required")
	}
	convID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return respError(c, fiber.StatusBadRequest, "conversation_id must be an integer")
	}

	msgs, err := s.driver.ListMessages(c.Context(), convID, principal(c).UserID)
	if storage.IsNotFound(err) {
		return respError(c, fiber.StatusNotFound, "conversation not found")
	}
	if err != nil {
		s.logger.Error("failed to list messages",
			"conversation_id", convID,
			"error", err,
		)
		return respError(c, fiber.StatusInternalServerError, "failed to list messages")
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, MessageView{
			ID:             m.ID,
			Content:        m.Content,
			ConversationID: m.ConversationID,
			Type:           m.Type,
		})
	}

	return respSuccess(c, views)
}

// resolvePlatform maps a request's platform field onto a supported platform.
func (s *Server) resolvePlatform(name string) llm.Platform {
	if name == "" {
		return s.config.DefaultPlatform
	}
	return llm.ParsePlatform(name)
}
