package api

import (
	"github.com/gofiber/fiber/v2"
)

// Response is the JSON envelope every non-stream endpoint returns.
type Response struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

// ConversationView is one row of GET /chat/conversations.
type ConversationView struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	UpdateTime  string  `json:"update_time"`
	LastMessage *string `json:"last_message"`
}

// MessageView is one row of GET /chat/messages.
type MessageView struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	ConversationID int64  `json:"conversation_id"`
	Type           string `json:"type"`
}

func respSuccess(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Code: 0, Message: "success", Data: data})
}

// respError writes the envelope with the HTTP status doubling as the code.
func respError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(Response{Code: status, Message: "error", Error: &msg})
}
