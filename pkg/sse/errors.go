package sse

import "errors"

var (
	// ErrStreamUnavailable is returned by NewDecoder when the response
	// carries no body to read from.
	ErrStreamUnavailable = errors.New("stream unavailable: response has no body")

	// ErrTransportRead matches every *ReadError via errors.Is.
	ErrTransportRead = errors.New("transport read failed")
)

// ReadError reports a failed read of the underlying body. Payloads that
// were decoded before the failure remain valid.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return "reading stream: " + e.Err.Error()
}

// Unwrap exposes both ErrTransportRead and the cause, so callers can test
// for either (e.g. errors.Is(err, context.Canceled)).
func (e *ReadError) Unwrap() []error {
	return []error{ErrTransportRead, e.Err}
}
