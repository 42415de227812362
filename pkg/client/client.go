// Package client is the HTTP client for the consolechat backend. Stream
// endpoints return an *sse.Decoder over the response body; everything else
// decodes the {"code","message","data","error"} envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/consolechat/pkg/logger"
)

// DefaultContentStreamPath is the stateless prompt endpoint used by
// StreamContent.
const DefaultContentStreamPath = "ai/stream"

// Client talks to one backend.
type Client struct {
	base              *url.URL
	token             string
	httpClient        *http.Client
	logger            *slog.Logger
	contentStreamPath string
}

// New creates a Client for baseURL. Request paths are resolved relative to
// it, so "http://host/api" serves "http://host/api/chat/stream".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		base: base,
		// No Timeout; streams are bounded by the request context.
		httpClient:        &http.Client{},
		logger:            logger.Nop(),
		contentStreamPath: DefaultContentStreamPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// do sends an authenticated request for path, which may carry a query
// string. body is JSON-encoded when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing request path: %w", err)
	}
	target := c.base.ResolveReference(ref)

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("sending request",
		"method", method,
		"url", target.String(),
		"authenticated", c.token != "",
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", target.Redacted(), err)
	}
	return resp, nil
}

// doJSON sends a request and decodes a 2xx JSON body into out. Non-2xx
// responses become *StatusError.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// doEnvelope is doJSON for endpoints wrapped in the response envelope.
func (c *Client) doEnvelope(ctx context.Context, method, path string, body, data any) error {
	var env envelope
	if err := c.doJSON(ctx, method, path, body, &env); err != nil {
		return err
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message, Detail: env.detail()}
	}
	if data == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (e envelope) detail() string {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	return string(e.Error)
}
