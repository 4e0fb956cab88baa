package storage

import "fmt"

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	UserID string
	Stage  int
}

func (e NotFoundError) Error() string {
	if e.UserID == "" {
		return "progress not found"
	}

	return fmt.Sprintf("progress not found: user %s stage %d", e.UserID, e.Stage)
}
