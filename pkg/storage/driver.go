// Package storage
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/mentor/pkg/llm"
)

// StageProgress is a user's progress through one mentoring stage.
type StageProgress struct {
	UserID      string    `json:"user_id"`
	Stage       int       `json:"stage_number"`
	CurrentStep int       `json:"current_step"`
	Completed   bool      `json:"completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChatMessage is one persisted message of a mentoring chat.
type ChatMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Context   llm.Context `json:"context"`
	Role      llm.Role    `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// Driver defines the interface for persisting mentoring state in a storage backend.
type Driver interface {
	// MarkSeen records that the user has seen the unlock notification for
	// stage. Marking an already seen stage is a no-op.
	MarkSeen(ctx context.Context, userID string, stage int) error

	// HasSeen reports whether the user has seen the notification for stage.
	HasSeen(ctx context.Context, userID string, stage int) (bool, error)

	// SeenStages returns every stage whose notification the user has seen,
	// in ascending order.
	SeenStages(ctx context.Context, userID string) ([]int, error)

	// UpsertProgress marks stage as completed for the user. A new row starts
	// at step 1; an existing row keeps its current step.
	UpsertProgress(ctx context.Context, userID string, stage int, at time.Time) (*StageProgress, error)

	// GetProgress returns the progress for one stage or a NotFoundError.
	GetProgress(ctx context.Context, userID string, stage int) (*StageProgress, error)

	// ListProgress returns the user's progress rows ordered by stage.
	ListProgress(ctx context.Context, userID string) ([]StageProgress, error)

	// AppendMessages stores messages in order. Messages without an ID or a
	// creation time get one assigned.
	AppendMessages(ctx context.Context, msgs ...ChatMessage) error

	// ListMessages returns the user's most recent messages, oldest first.
	// A limit of zero or less returns all of them.
	ListMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error)

	// Close closes the store and releases any resources.
	Close() error
}
