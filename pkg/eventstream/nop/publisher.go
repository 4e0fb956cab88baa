package nop

import (
	"context"

	"github.com/papercomputeco/mentor/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishStageCompleted validates input and otherwise does nothing.
func (p *Publisher) PublishStageCompleted(_ context.Context, event *eventstream.StageCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishChatTurn validates input and otherwise does nothing.
func (p *Publisher) PublishChatTurn(_ context.Context, event *eventstream.ChatTurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
