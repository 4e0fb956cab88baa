package chat

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/mentor/pkg/deltastream"
	"github.com/papercomputeco/mentor/pkg/llm"
)

// ErrBusy is returned by Session.Send while another send is in flight.
var ErrBusy = errors.New("a message is already being sent")

// Turn is one completed exchange of a Session.
type Turn struct {
	Context     llm.Context
	User        llm.Message
	Assistant   llm.Message
	StartedAt   time.Time
	CompletedAt time.Time
}

// Session keeps the history of one mentoring conversation.
type Session struct {
	streamer Streamer
	context  llm.Context
	onTurn   func(Turn)

	mu       sync.Mutex
	messages []llm.Message
	busy     bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithContext sets the mentoring context tag sent with every request.
func WithContext(c llm.Context) SessionOption {
	return func(s *Session) {
		s.context = llm.ParseContext(string(c))
	}
}

// WithHistory seeds the session with earlier messages.
func WithHistory(messages []llm.Message) SessionOption {
	return func(s *Session) {
		s.messages = slices.Clone(messages)
	}
}

// WithTurnHandler registers fn to be called after every successful Send.
func WithTurnHandler(fn func(Turn)) SessionOption {
	return func(s *Session) {
		s.onTurn = fn
	}
}

// NewSession creates a Session sending through streamer.
func NewSession(streamer Streamer, opts ...SessionOption) *Session {
	s := &Session{
		streamer: streamer,
		context:  llm.ContextGeneral,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends input as a user message, streams the assistant reply through
// onDelta and records it. Blank input is ignored. If streaming fails the user
// message is removed again so the caller can resubmit.
func (s *Session) Send(ctx context.Context, input string, onDelta deltastream.FragmentFunc) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", nil
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.busy = true
	user := llm.NewUserMessage(input)
	s.messages = append(s.messages, user)
	req := llm.ChatRequest{
		Messages: slices.Clone(s.messages),
		Context:  s.context,
	}
	s.mu.Unlock()

	started := time.Now()
	reply, err := s.streamer.Stream(ctx, req, onDelta)

	s.mu.Lock()
	s.busy = false

	if err != nil {
		s.messages = s.messages[:len(s.messages)-1]
		s.mu.Unlock()
		return "", err
	}

	assistant := llm.NewAssistantMessage(reply)
	if reply != "" {
		s.messages = append(s.messages, assistant)
	}
	s.mu.Unlock()

	if s.onTurn != nil {
		s.onTurn(Turn{
			Context:     s.context,
			User:        user,
			Assistant:   assistant,
			StartedAt:   started,
			CompletedAt: time.Now(),
		})
	}
	return reply, nil
}

// Messages returns a copy of the history.
func (s *Session) Messages() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// SetMessages replaces the history.
func (s *Session) SetMessages(messages []llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = slices.Clone(messages)
}

// Reset clears the history.
func (s *Session) Reset() {
	s.SetMessages(nil)
}

// Context returns the session's mentoring context tag.
func (s *Session) Context() llm.Context {
	return s.context
}
