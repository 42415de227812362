package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/papercomputeco/consolechat/pkg/sse"
)

// StreamRequest is the body of POST chat/stream.
type StreamRequest struct {
	Content        string `json:"content"`
	Platform       string `json:"platform"`
	ConversationID *int64 `json:"conversation_id"`
}

type contentRequest struct {
	Content string `json:"content"`
}

// Stream posts a prompt to a conversation and returns a decoder over the
// reply. The caller must drain or Close the decoder.
func (c *Client) Stream(ctx context.Context, req StreamRequest) (*sse.Decoder, error) {
	return c.openStream(ctx, "chat/stream", req)
}

// StreamContent posts a bare prompt to the content stream path.
func (c *Client) StreamContent(ctx context.Context, content string) (*sse.Decoder, error) {
	return c.openStream(ctx, c.contentStreamPath, contentRequest{Content: content})
}

func (c *Client) openStream(ctx context.Context, path string, body any) (*sse.Decoder, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	rc := resp.Body
	if resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0 {
		resp.Body.Close()
		rc = http.NoBody
	}

	dec, err := sse.NewDecoder(rc)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return dec, nil
}
