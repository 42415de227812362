package client

import (
	"log/slog"
	"net/http"
	"strings"
)

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContentStreamPath changes the path StreamContent posts to.
func WithContentStreamPath(path string) Option {
	return func(c *Client) {
		if p := strings.TrimPrefix(path, "/"); p != "" {
			c.contentStreamPath = p
		}
	}
}
