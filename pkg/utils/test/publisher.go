package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/mentor/pkg/eventstream"
)

// ErrPublishFailed is returned by MockPublisher when Fail is set.
var ErrPublishFailed = errors.New("publish failed")

// MockPublisher is a test eventstream publisher that records events.
type MockPublisher struct {
	mu sync.Mutex

	StageEvents []*eventstream.StageCompletedEvent
	ChatEvents  []*eventstream.ChatTurnPersistedEvent

	// Fail causes every publish to return ErrPublishFailed.
	Fail bool

	Closed bool
}

var _ eventstream.Publisher = (*MockPublisher)(nil)

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishStageCompleted(_ context.Context, event *eventstream.StageCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrPublishFailed
	}
	m.StageEvents = append(m.StageEvents, event)
	return nil
}

func (m *MockPublisher) PublishChatTurn(_ context.Context, event *eventstream.ChatTurnPersistedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrPublishFailed
	}
	m.ChatEvents = append(m.ChatEvents, event)
	return nil
}

// ChatTurns returns a snapshot of the recorded chat events.
func (m *MockPublisher) ChatTurns() []*eventstream.ChatTurnPersistedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.ChatTurnPersistedEvent, len(m.ChatEvents))
	copy(out, m.ChatEvents)
	return out
}

func (m *MockPublisher) Close() error {
	m.Closed = true
	return nil
}
