package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/mentor/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeStageCompleted is emitted after a mentoring stage is marked complete.
	EventTypeStageCompleted = "mentor.stage.completed"

	// EventTypeChatTurnPersisted is emitted after a chat turn is persisted.
	EventTypeChatTurnPersisted = "mentor.chat.turn.persisted"
)

// StageCompletedEvent is a transport-neutral payload for a completed stage.
type StageCompletedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	UserID        string    `json:"user_id"`
	Stage         int       `json:"stage_number"`
	CurrentStep   int       `json:"current_step"`
	CompletedAt   time.Time `json:"completed_at"`
}

// NewStageCompletedEvent builds a v1 stage event with a fresh event id.
func NewStageCompletedEvent(userID string, stage, currentStep int, completedAt time.Time) *StageCompletedEvent {
	return &StageCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeStageCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		UserID:        userID,
		Stage:         stage,
		CurrentStep:   currentStep,
		CompletedAt:   completedAt.UTC(),
	}
}

// ChatTurnPersistedEvent is a transport-neutral payload for a persisted chat turn.
type ChatTurnPersistedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	UserID        string        `json:"user_id"`
	Context       llm.Context   `json:"context"`
	MessageIDs    []string      `json:"message_ids"`
	Turn          []llm.Message `json:"turn"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	DurationMs    int64         `json:"duration_ms"`
}

// NewChatTurnPersistedEvent builds a v1 chat turn event with a fresh event id.
func NewChatTurnPersistedEvent(userID string, chatCtx llm.Context, ids []string, turn []llm.Message, started, completed time.Time) *ChatTurnPersistedEvent {
	return &ChatTurnPersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeChatTurnPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		UserID:        userID,
		Context:       chatCtx,
		MessageIDs:    ids,
		Turn:          turn,
		StartedAt:     started.UTC(),
		CompletedAt:   completed.UTC(),
		DurationMs:    completed.Sub(started).Milliseconds(),
	}
}
