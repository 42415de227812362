// Package sse handles the "data: <payload>\n\n" streams that flow between
// the chat backend, its upstream LLM platforms, and chat clients.
//
// Decoder is the client side: it turns a response body into an ordered
// sequence of payload strings regardless of how the network splits the
// bytes. Reader is a full field parser (event, id, multi-line data) used
// against upstream platforms, optionally teeing the raw bytes elsewhere.
// Writer emits records and flushes them as they are written.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
