package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	// Message is the "error" (or "message"/"detail") field of a JSON error
	// body, or the raw body otherwise.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// APIError is returned when a 2xx envelope carries a non-zero code.
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// checkStatus turns a non-2xx response into a *StatusError. It reads from but
// does not close the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
}

func errorMessage(data []byte) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return string(data)
	}
	for _, v := range []any{body.Error, body.Detail} {
		switch m := v.(type) {
		case string:
			if m != "" {
				return m
			}
		case nil:
		default:
			b, _ := json.Marshal(m)
			return string(b)
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return string(data)
}
