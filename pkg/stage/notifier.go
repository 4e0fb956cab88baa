package stage

import (
	"context"
	"fmt"
	"log/slog"
)

// SeenStore remembers which notifications a user has already seen.
type SeenStore interface {
	HasSeen(ctx context.Context, userID string, stage int) (bool, error)
	MarkSeen(ctx context.Context, userID string, stage int) error
}

// Notifier picks the unlock notification to show a user.
type Notifier struct {
	store  SeenStore
	logger *slog.Logger
}

// NewNotifier creates a Notifier backed by store.
func NewNotifier(store SeenStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		logger: logger,
	}
}

// Next returns the highest priority unlocked stage the user has not seen,
// or nil when there is nothing to announce.
func (n *Notifier) Next(ctx context.Context, userID string, unlocks Unlocks) (*Notification, error) {
	if userID == "" {
		return nil, nil
	}

	for _, s := range Priority {
		if !unlocks.Unlocked(s) {
			continue
		}

		seen, err := n.store.HasSeen(ctx, userID, s)
		if err != nil {
			return nil, fmt.Errorf("checking notification for stage %d: %w", s, err)
		}
		if seen {
			continue
		}

		notification := Catalog[s]
		return &notification, nil
	}

	return nil, nil
}

// MarkSeen records that the user dismissed or followed the notification.
func (n *Notifier) MarkSeen(ctx context.Context, userID string, stage int) error {
	if _, ok := Catalog[stage]; !ok {
		return fmt.Errorf("%w: no notification for stage %d", ErrInvalidStage, stage)
	}

	if err := n.store.MarkSeen(ctx, userID, stage); err != nil {
		return fmt.Errorf("marking notification for stage %d: %w", stage, err)
	}

	n.logger.Debug("stage notification seen", "user_id", userID, "stage", stage)
	return nil
}
