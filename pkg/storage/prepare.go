package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyUser is returned when a record carries no user id.
var ErrEmptyUser = errors.New("empty user id")

// PrepareMessages validates msgs and fills in missing ids and timestamps.
// Messages created without a timestamp share now.
func PrepareMessages(msgs []ChatMessage, now time.Time) ([]ChatMessage, error) {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		if m.UserID == "" {
			return nil, ErrEmptyUser
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out[i] = m
	}

	return out, nil
}
