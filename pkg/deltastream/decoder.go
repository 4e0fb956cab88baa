// Package deltastream decodes the incremental "delta" event stream returned by
// the remote AI chat function into ordered text fragments.
//
// The wire format is newline delimited:
//
//	: keep-alive
//	data: {"choices":[{"delta":{"content":"He"}}]}
//	data: {"choices":[{"delta":{"content":"llo"}}]}
//	data: [DONE]
//
// Concatenating every fragment in order reconstructs the generated message.
// Unlike pkg/sse style event readers, records are interpreted line by line and
// a blank line carries no meaning.
package deltastream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/mentor/pkg/logger"
)

const (
	// DataPrefix marks a line carrying an event payload.
	DataPrefix = "data: "

	// CommentPrefix marks a comment line, typically a keep-alive.
	CommentPrefix = ":"

	// DoneSentinel is the payload signalling that no more records follow.
	DoneSentinel = "[DONE]"

	defaultChunkSize = 4096
)

// ErrIncomplete is returned by a Decoder built WithRequireDone when the stream
// ends before the DoneSentinel.
var ErrIncomplete = errors.New("delta stream ended before the done sentinel")

// StreamError is returned by a Decoder built WithErrorRecords when the stream
// carries a failure record such as {"error":"stream interrupted"}.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "delta stream failed: " + e.Message
}

// FragmentFunc receives each non-empty text fragment in arrival order.
// Returning an error stops decoding and Decode returns that error.
type FragmentFunc func(fragment string) error

// Decoder turns an event stream into text fragments. A Decoder holds only
// configuration: every Decode call owns its own buffer, so one Decoder may
// serve concurrent, independent streams.
type Decoder struct {
	chunkSize    int
	logger       *slog.Logger
	errorRecords bool
	requireDone  bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithChunkSize sets how many bytes are requested from the stream per read.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for debug output about deferred and
// dropped records.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithErrorRecords makes a record whose payload is an object with a non-empty
// string "error" field end decoding with a *StreamError.
func WithErrorRecords() Option {
	return func(d *Decoder) {
		d.errorRecords = true
	}
}

// WithRequireDone makes a stream that is exhausted without the DoneSentinel
// end with ErrIncomplete, after the final flush has run.
func WithRequireDone() Option {
	return func(d *Decoder) {
		d.requireDone = true
	}
}

// New returns a Decoder with the given options applied.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		chunkSize: defaultChunkSize,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads r until it is exhausted or the DoneSentinel is seen, calling fn
// once per extracted fragment.
//
// Read errors and context cancellation end decoding and are returned; no
// callback runs after either. Malformed records are never surfaced: mid-stream
// they are kept at the front of the buffer until more data arrives, and at
// end of stream they are dropped.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, fn FragmentFunc) error {
	if r == nil {
		return errors.New("nil delta stream")
	}

	if fn == nil {
		fn = func(string) error { return nil }
	}

	s := &decodeState{
		ctx:          ctx,
		fn:           fn,
		logger:       d.logger,
		errorRecords: d.errorRecords,
	}

	chunk := make([]byte, d.chunkSize)
	for !s.done {
		n, readErr := r.Read(chunk)

		if err := ctx.Err(); err != nil {
			return err
		}

		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			if err := s.drain(); err != nil {
				return err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fmt.Errorf("reading delta stream: %w", readErr)
		}
	}

	if s.done {
		return nil
	}

	if err := s.flush(); err != nil {
		return err
	}
	if d.requireDone && !s.done {
		return ErrIncomplete
	}
	return nil
}

// Decode runs a default Decoder over r.
func Decode(ctx context.Context, r io.Reader, fn FragmentFunc) error {
	return New().Decode(ctx, r, fn)
}

// Collect decodes r and returns the concatenation of all fragments.
func Collect(ctx context.Context, r io.Reader) (string, error) {
	var sb strings.Builder
	err := Decode(ctx, r, func(fragment string) error {
		sb.WriteString(fragment)
		return nil
	})
	return sb.String(), err
}

// lineResult is the outcome of interpreting one line.
type lineResult int

const (
	lineConsumed lineResult = iota
	lineDeferred
	lineDone
)

// decodeState is the per-call working state. It is never shared.
type decodeState struct {
	ctx          context.Context
	fn           FragmentFunc
	logger       *slog.Logger
	errorRecords bool

	// buf holds bytes not yet resolved into a complete line. Lines are only
	// cut at '\n', which never occurs inside a multi-byte UTF-8 sequence, so
	// a rune split across reads is completed by the next append.
	buf  []byte
	done bool
}

// drain interprets complete lines from the front of the buffer until none is
// left, a record has to wait for more data, or the sentinel is seen.
func (s *decodeState) drain() error {
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			return nil
		}

		res, err := s.interpret(s.buf[:i], true)
		if err != nil {
			return err
		}

		switch res {
		case lineDeferred:
			// The line and its newline stay at the front of the buffer.
			return nil
		case lineDone:
			s.done = true
			s.buf = nil
			return nil
		}

		s.buf = s.buf[i+1:]
	}
}

// flush interprets whatever is left after the stream ended. Nothing more will
// arrive, so malformed records are dropped instead of deferred.
func (s *decodeState) flush() error {
	residual := s.buf
	s.buf = nil

	if len(bytes.TrimSpace(residual)) == 0 {
		return nil
	}

	for _, raw := range bytes.Split(residual, []byte("\n")) {
		if len(raw) == 0 {
			continue
		}

		res, err := s.interpret(raw, false)
		if err != nil {
			return err
		}
		if res == lineDone {
			s.done = true
			return nil
		}
	}

	return nil
}

// interpret applies the per-line rules. live is false during the final flush.
func (s *decodeState) interpret(raw []byte, live bool) (lineResult, error) {
	line := strings.ToValidUTF8(string(raw), "\uFFFD")
	line = strings.TrimSuffix(line, "\r")

	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, CommentPrefix) {
		return lineConsumed, nil
	}
	if !strings.HasPrefix(line, DataPrefix) {
		return lineConsumed, nil
	}

	payload := strings.TrimSpace(line[len(DataPrefix):])
	if payload == DoneSentinel {
		return lineDone, nil
	}

	if !json.Valid([]byte(payload)) {
		if live {
			s.logger.Debug("deferring incomplete delta record", "bytes", len(payload))
			return lineDeferred, nil
		}
		s.logger.Debug("dropping malformed trailing delta record", "bytes", len(payload))
		return lineConsumed, nil
	}

	if s.errorRecords {
		if msg := errorOf([]byte(payload)); msg != "" {
			return lineConsumed, &StreamError{Message: msg}
		}
	}

	fragment := contentOf([]byte(payload))
	if fragment == "" {
		return lineConsumed, nil
	}

	if err := s.ctx.Err(); err != nil {
		return lineConsumed, err
	}

	return lineConsumed, s.fn(fragment)
}

// deltaRecord models only choices[0].delta.content so that fields outside
// that path never affect decoding.
type deltaRecord struct {
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// contentOf returns choices[0].delta.content when it is a string, else "".
func contentOf(payload []byte) string {
	var rec deltaRecord
	if err := json.Unmarshal(payload, &rec); err != nil || len(rec.Choices) == 0 {
		return ""
	}

	var content string
	if err := json.Unmarshal(rec.Choices[0].Delta.Content, &content); err != nil {
		return ""
	}
	return content
}

// errorOf returns the "error" field of a failure record, or "".
func errorOf(payload []byte) string {
	var rec struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(payload, &rec); err != nil {
		return ""
	}

	var msg string
	if err := json.Unmarshal(rec.Error, &msg); err != nil {
		return ""
	}
	return msg
}
