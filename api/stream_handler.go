package api

import (
	"context"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/consolechat/api/worker"
	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/sse"
	"github.com/papercomputeco/consolechat/pkg/storage"
)

// chatStreamRequest is the body of POST /chat/stream.
type chatStreamRequest struct {
	Content        string `json:"content"`
	Platform       string `json:"platform"`
	ConversationID int64  `json:"conversation_id"`
}

// promptStreamRequest is the body of POST /ai/stream.
type promptStreamRequest struct {
	Content string `json:"content"`
}

// handleChatStream appends the caller's message to a conversation and
// streams the assistant reply. The finished reply is handed to the worker
// pool for storage.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	var req chatStreamRequest
	if err := c.BodyParser(&req); err != nil {
		return respError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return respError(c, fiber.StatusBadRequest, "content must not be empty")
	}

	ctx := c.Context()
	user := principal(c)

	conv, err := s.driver.GetConversation(ctx, req.ConversationID)
	if err != nil || conv.UserID != user.UserID {
		if err != nil && !storage.IsNotFound(err) {
			s.logger.Error("failed to load conversation", "conversation_id", req.ConversationID, "error", err)
		}
		return respError(c, fiber.StatusBadRequest, storage.NotFoundError{ConversationID: req.ConversationID}.Error())
	}

	platform := s.resolvePlatform(req.Platform)
	streamer, err := s.config.Streamers(platform)
	if err != nil {
		s.logger.Error("failed to create streamer", "platform", platform, "error", err)
		return respError(c, fiber.StatusBadGateway, "platform unavailable")
	}

	if _, err := s.driver.AddMessage(ctx, &storage.Message{
		ConversationID: conv.ID,
		UserID:         user.UserID,
		Type:           storage.MessageTypeUser,
		Content:        req.Content,
	}); err != nil {
		s.logger.Error("failed to store user message", "conversation_id", conv.ID, "error", err)
		return respError(c, fiber.StatusInternalServerError, "failed to store message")
	}

	history, err := s.driver.History(ctx, conv.ID)
	if err != nil {
		s.logger.Error("failed to load history", "conversation_id", conv.ID, "error", err)
		return respError(c, fiber.StatusInternalServerError, "failed to load history")
	}

	if len(history) == 1 {
		if err := s.driver.UpdateConversationTitle(ctx, conv.ID, req.Content); err != nil {
			s.logger.Warn("failed to set conversation title", "conversation_id", conv.ID, "error", err)
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.NewTextMessage(llm.RoleSystem, s.config.SystemPrompt))
	for _, m := range history {
		messages = append(messages, llm.NewTextMessage(m.Type, m.Content))
	}

	job := &worker.Job{
		ConversationID: conv.ID,
		UserID:         user.UserID,
		Platform:       streamer.Name(),
		Model:          streamer.Model(),
	}
	s.stream(c, streamer, messages, job)
	return nil
}

// handlePromptStream streams a reply to a single prompt without storing
// anything.
func (s *Server) handlePromptStream(c *fiber.Ctx) error {
	var req promptStreamRequest
	if err := c.BodyParser(&req); err != nil {
		return respError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return respError(c, fiber.StatusBadRequest, "content must not be empty")
	}

	streamer, err := s.config.Streamers(s.config.DefaultPlatform)
	if err != nil {
		s.logger.Error("failed to create streamer", "platform", s.config.DefaultPlatform, "error", err)
		return respError(c, fiber.StatusBadGateway, "platform unavailable")
	}

	s.stream(c, streamer, []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, s.config.SystemPrompt),
		llm.NewTextMessage(llm.RoleUser, req.Content),
	}, nil)
	return nil
}

// stream sets c's body to the streamer's deltas framed as SSE records. When
// job is non-nil the full reply is enqueued once the upstream finishes.
func (s *Server) stream(c *fiber.Ctx, streamer llm.Streamer, messages []llm.Message, job *worker.Job) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter: pw.Write
	// blocks until fasthttp's chunked body writer has consumed the record,
	// which flushes to TCP after every chunk.
	pr, pw := io.Pipe()
	go s.pipeStream(pw, streamer, messages, job)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)
}

func (s *Server) pipeStream(pw *io.PipeWriter, streamer llm.Streamer, messages []llm.Message, job *worker.Job) {
	// fasthttp recycles the request context once the handler returns, so the
	// upstream call runs on its own context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer pw.Close()

	w := sse.NewWriter(pw)
	var reply strings.Builder

	for delta, err := range streamer.StreamChat(ctx, messages) {
		if err != nil {
			s.logger.Error("upstream stream failed",
				"platform", streamer.Name(),
				"error", err,
			)
			pw.CloseWithError(err)
			return
		}
		if delta == "" {
			continue
		}
		reply.WriteString(delta)
		if err := w.WriteData(delta); err != nil {
			// Client went away; the partial reply is not stored.
			s.logger.Debug("client stopped reading stream", "error", err)
			return
		}
	}

	if job != nil && reply.Len() > 0 {
		job.Content = reply.String()
		s.workerPool.Enqueue(*job)
	}
}
