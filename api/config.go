// Package api provides the HTTP chat backend: conversation bookkeeping and
// token streams in the "data: <delta>\n\n" wire format.
package api

import (
	"github.com/papercomputeco/consolechat/pkg/llm"
)

// DefaultSystemPrompt opens every chat context.
const DefaultSystemPrompt = "You are a helpful assistant"

// StreamerFactory returns the llm.Streamer that serves a platform.
type StreamerFactory func(platform llm.Platform) (llm.Streamer, error)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// DefaultPlatform serves requests that name no platform, and every
	// stateless /ai/stream request.
	DefaultPlatform llm.Platform

	// SystemPrompt replaces DefaultSystemPrompt when set.
	SystemPrompt string

	// Streamers resolves platforms to upstream streamers.
	Streamers StreamerFactory

	// NumWorkers sizes the persistence worker pool (defaults to 3).
	NumWorkers uint
}
