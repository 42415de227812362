// Package openai streams chat completions from platforms that speak the
// OpenAI Chat Completions protocol: OpenAI itself, DeepSeek, and Tongyi's
// DashScope compatible mode.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/sse"
)

const (
	completionsPath = "/v1/chat/completions"
	doneMarker      = "[DONE]"
)

type streamer struct {
	platform llm.Platform
	opts     llm.Options
}

// New returns a Streamer for platform. An API key is required.
func New(platform llm.Platform, opts llm.Options) (llm.Streamer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: missing API key (set %s)", platform, platform.APIKeyEnv())
	}
	return &streamer{platform: platform, opts: opts.Resolve(platform)}, nil
}

func (s *streamer) Name() string  { return string(s.platform) }
func (s *streamer) Model() string { return s.opts.Model }

func (s *streamer) StreamChat(ctx context.Context, messages []llm.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := chatRequest{Model: s.opts.Model, Stream: true}
		for _, m := range messages {
			req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
		}

		header := http.Header{}
		header.Set("Authorization", "Bearer "+s.opts.APIKey)
		header.Set("Accept", "text/event-stream")

		resp, err := llm.PostJSON(ctx, s.opts.HTTPClient, s.Name(), s.opts.Upstream+completionsPath, header, req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		r := sse.NewReader(resp.Body)
		for {
			ev, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("reading %s stream: %w", s.platform, err))
				return
			}
			if ev.Data == doneMarker {
				return
			}

			var chunk chatChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				yield("", fmt.Errorf("decoding %s chunk: %w", s.platform, err))
				return
			}
			if chunk.Error != nil {
				yield("", fmt.Errorf("%s stream error: %s", s.platform, chunk.Error.Message))
				return
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
	}
}
