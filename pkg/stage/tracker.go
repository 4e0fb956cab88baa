package stage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/storage"
)

// ProgressStore persists stage progress.
type ProgressStore interface {
	UpsertProgress(ctx context.Context, userID string, stage int, at time.Time) (*storage.StageProgress, error)
	ListProgress(ctx context.Context, userID string) ([]storage.StageProgress, error)
}

// Tracker records completed stages and announces them on the event stream.
type Tracker struct {
	store     ProgressStore
	publisher eventstream.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewTracker creates a Tracker. publisher may be nil when events are disabled.
func NewTracker(store ProgressStore, publisher eventstream.Publisher, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Complete marks stage as completed for the user. A failed publish is logged;
// the stored progress is still returned.
func (t *Tracker) Complete(ctx context.Context, userID string, stage int) (*storage.StageProgress, error) {
	if err := Validate(stage); err != nil {
		return nil, err
	}

	progress, err := t.store.UpsertProgress(ctx, userID, stage, t.now())
	if err != nil {
		return nil, fmt.Errorf("completing stage %d: %w", stage, err)
	}

	t.logger.Info("stage completed", "user_id", userID, "stage", stage)

	if t.publisher != nil {
		event := eventstream.NewStageCompletedEvent(userID, stage, progress.CurrentStep, progress.UpdatedAt)
		if err := t.publisher.PublishStageCompleted(ctx, event); err != nil {
			t.logger.Warn("failed to publish stage completed event",
				"user_id", userID,
				"stage", stage,
				"error", err,
			)
		}
	}

	return progress, nil
}

// List returns the user's progress ordered by stage.
func (t *Tracker) List(ctx context.Context, userID string) ([]storage.StageProgress, error) {
	progress, err := t.store.ListProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	return progress, nil
}
