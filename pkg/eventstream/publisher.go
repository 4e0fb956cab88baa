package eventstream

import "context"

// Publisher publishes mentoring events to an event stream backend.
type Publisher interface {
	PublishStageCompleted(ctx context.Context, event *StageCompletedEvent) error
	PublishChatTurn(ctx context.Context, event *ChatTurnPersistedEvent) error
	Close() error
}
