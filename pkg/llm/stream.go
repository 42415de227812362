package llm

import (
	"context"
	"fmt"
	"iter"
)

// Streamer produces the reply to a chat context as a sequence of text
// deltas. An error ends the sequence.
type Streamer interface {
	// Name returns the platform name (e.g. "deepseek", "ollama").
	Name() string

	// Model returns the model the streamer requests.
	Model() string

	StreamChat(ctx context.Context, messages []Message) iter.Seq2[string, error]
}

// StatusError is returned when an upstream platform rejects a request.
type StatusError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s upstream returned status %d: %s", e.Platform, e.StatusCode, e.Body)
}
