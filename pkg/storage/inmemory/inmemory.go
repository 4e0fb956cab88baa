// Package inmemory provides a map-backed storage driver for tests and
// single-process use.
package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/mentor/pkg/storage"
)

type progressKey struct {
	userID string
	stage  int
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	mu sync.RWMutex

	// seen maps a user id to the set of stages whose notification was seen
	seen map[string]map[int]struct{}

	progress map[progressKey]storage.StageProgress

	// messages holds each user's transcript in append order
	messages map[string][]storage.ChatMessage
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		seen:     make(map[string]map[int]struct{}),
		progress: make(map[progressKey]storage.StageProgress),
		messages: make(map[string][]storage.ChatMessage),
	}
}

// MarkSeen records the notification for stage as seen.
func (d *Driver) MarkSeen(_ context.Context, userID string, stage int) error {
	if userID == "" {
		return storage.ErrEmptyUser
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stages, ok := d.seen[userID]
	if !ok {
		stages = make(map[int]struct{})
		d.seen[userID] = stages
	}
	stages[stage] = struct{}{}
	return nil
}

// HasSeen reports whether the notification for stage was seen.
func (d *Driver) HasSeen(_ context.Context, userID string, stage int) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.seen[userID][stage]
	return ok, nil
}

// SeenStages returns the seen stages in ascending order.
func (d *Driver) SeenStages(_ context.Context, userID string) ([]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stages := make([]int, 0, len(d.seen[userID]))
	for s := range d.seen[userID] {
		stages = append(stages, s)
	}
	slices.Sort(stages)
	return stages, nil
}

// UpsertProgress marks stage as completed.
func (d *Driver) UpsertProgress(_ context.Context, userID string, stage int, at time.Time) (*storage.StageProgress, error) {
	if userID == "" {
		return nil, storage.ErrEmptyUser
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := progressKey{userID: userID, stage: stage}
	p, ok := d.progress[key]
	if !ok {
		p = storage.StageProgress{
			UserID:      userID,
			Stage:       stage,
			CurrentStep: 1,
		}
	}
	p.Completed = true
	p.UpdatedAt = at.UTC()
	d.progress[key] = p

	return &p, nil
}

// GetProgress returns the progress row for stage.
func (d *Driver) GetProgress(_ context.Context, userID string, stage int) (*storage.StageProgress, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.progress[progressKey{userID: userID, stage: stage}]
	if !ok {
		return nil, storage.NotFoundError{UserID: userID, Stage: stage}
	}
	return &p, nil
}

// ListProgress returns the user's progress ordered by stage.
func (d *Driver) ListProgress(_ context.Context, userID string) ([]storage.StageProgress, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []storage.StageProgress
	for key, p := range d.progress {
		if key.userID == userID {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b storage.StageProgress) int {
		return a.Stage - b.Stage
	})
	return result, nil
}

// AppendMessages appends msgs to their users' transcripts.
func (d *Driver) AppendMessages(_ context.Context, msgs ...storage.ChatMessage) error {
	prepared, err := storage.PrepareMessages(msgs, time.Now())
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, m := range prepared {
		d.messages[m.UserID] = append(d.messages[m.UserID], m)
	}
	return nil
}

// ListMessages returns up to limit of the user's latest messages, oldest first.
func (d *Driver) ListMessages(_ context.Context, userID string, limit int) ([]storage.ChatMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := d.messages[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
