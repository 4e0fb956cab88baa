package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/mentor/pkg/llm"
)

// ErrMultiline is returned for event data containing a newline.
var ErrMultiline = errors.New("sse data must be a single line")

// Writer encodes events onto an underlying writer, typically the write end of
// an io.Pipe feeding a streamed HTTP response.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer encoding events to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes ev followed by the blank line terminating it.
func (w *Writer) WriteEvent(ev Event) error {
	if strings.ContainsAny(ev.Data, "\r\n") {
		return ErrMultiline
	}

	var b strings.Builder
	if ev.Type != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Type)
		b.WriteByte('\n')
	}
	b.WriteString("data: ")
	b.WriteString(ev.Data)
	b.WriteString("\n\n")

	_, err := io.WriteString(w.w, b.String())
	return err
}

// WriteDelta writes a content fragment as a chat completion chunk.
func (w *Writer) WriteDelta(content string) error {
	payload, err := json.Marshal(llm.NewContentChunk(content))
	if err != nil {
		return fmt.Errorf("encoding delta: %w", err)
	}
	return w.WriteEvent(Event{Data: string(payload)})
}

// WriteError writes a failure event carrying msg as an llm.ErrorResponse.
func (w *Writer) WriteError(msg string) error {
	payload, err := json.Marshal(llm.ErrorResponse{Error: msg})
	if err != nil {
		return fmt.Errorf("encoding error event: %w", err)
	}
	return w.WriteEvent(Event{Type: EventTypeError, Data: string(payload)})
}

// WriteDone writes the terminal sentinel.
func (w *Writer) WriteDone() error {
	return w.WriteEvent(Event{Data: Done})
}

// WriteComment writes a comment line, used as a keep-alive.
func (w *Writer) WriteComment(text string) error {
	if strings.ContainsAny(text, "\r\n") {
		return ErrMultiline
	}
	_, err := io.WriteString(w.w, ": "+text+"\n\n")
	return err
}
