// Package ollama streams replies from a local Ollama server's /api/chat
// endpoint, which answers with newline-delimited JSON.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/papercomputeco/consolechat/pkg/llm"
)

const chatPath = "/api/chat"

type streamer struct {
	opts llm.Options
}

// New returns an Ollama Streamer. No API key is needed.
func New(opts llm.Options) llm.Streamer {
	return &streamer{opts: opts.Resolve(llm.Ollama)}
}

func (s *streamer) Name() string  { return string(llm.Ollama) }
func (s *streamer) Model() string { return s.opts.Model }

func (s *streamer) StreamChat(ctx context.Context, messages []llm.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := chatRequest{Model: s.opts.Model, Stream: true}
		for _, m := range messages {
			req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
		}

		resp, err := llm.PostJSON(ctx, s.opts.HTTPClient, s.Name(), s.opts.Upstream+chatPath, nil, req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		dec := json.NewDecoder(resp.Body)
		for {
			var line chatResponse
			if err := dec.Decode(&line); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield("", fmt.Errorf("decoding ollama stream: %w", err))
				return
			}
			if line.Error != "" {
				yield("", fmt.Errorf("ollama stream error: %s", line.Error))
				return
			}
			if line.Message.Content != "" {
				if !yield(line.Message.Content, nil) {
					return
				}
			}
			if line.Done {
				return
			}
		}
	}
}
