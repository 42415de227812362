// Package genai streams replies from Google's Generative Language API
// (Gemini) using streamGenerateContent with server-sent events.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"

	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/sse"
)

type streamer struct {
	opts llm.Options
}

// New returns a Gemini Streamer. An API key is required.
func New(opts llm.Options) (llm.Streamer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: missing API key (set %s)", llm.GoogleGenAI, llm.GoogleGenAI.APIKeyEnv())
	}
	return &streamer{opts: opts.Resolve(llm.GoogleGenAI)}, nil
}

func (s *streamer) Name() string  { return string(llm.GoogleGenAI) }
func (s *streamer) Model() string { return s.opts.Model }

func (s *streamer) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", s.opts.Upstream, url.PathEscape(s.opts.Model))
}

// buildRequest moves system messages into systemInstruction and renames
// the assistant role to "model".
func buildRequest(messages []llm.Message) generateRequest {
	var req generateRequest
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			if req.SystemInstruction == nil {
				req.SystemInstruction = &content{}
			}
			req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, part{Text: m.Content})
		case llm.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	return req
}

func (s *streamer) StreamChat(ctx context.Context, messages []llm.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		header := http.Header{}
		header.Set("x-goog-api-key", s.opts.APIKey)

		resp, err := llm.PostJSON(ctx, s.opts.HTTPClient, s.Name(), s.endpoint(), header, buildRequest(messages))
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
				yield("", fmt.Errorf("reading genai stream: %w", err))
				return
			}

			var chunk generateResponse
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				yield("", fmt.Errorf("decoding genai chunk: %w", err))
				return
			}
			if chunk.Error != nil {
				yield("", fmt.Errorf("genai stream error %d: %s", chunk.Error.Code, chunk.Error.Message))
				return
			}

			for _, c := range chunk.Candidates {
				for _, p := range c.Content.Parts {
					if p.Text == "" {
						continue
					}
					if !yield(p.Text, nil) {
						return
					}
				}
			}
		}
	}
}
