// Package sse writes the OpenAI-shaped Server-Sent Events stream the mentor
// API relays to its clients. Every event is a single "data:" line followed by
// a blank line, and the stream ends with the "[DONE]" sentinel, which is
// exactly what the delta-stream decoder consumes.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single SSE event.
type Event struct {
	// Type is the SSE event type written as the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the event payload. It must not contain newlines.
	Data string
}

const (
	// ContentType is the media type of an SSE response.
	ContentType = "text/event-stream"

	// Done is the payload of the terminal event.
	Done = "[DONE]"

	// EventTypeError marks an event carrying a mid-stream failure.
	EventTypeError = "error"
)
