package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/mentor/pkg/llm"
)

const (
	sessionFile = "session.json"
)

// SessionState is a chat conversation saved between CLI runs.
type SessionState struct {
	// Context is the mentoring area of the conversation.
	Context llm.Context `json:"context"`

	// Messages is the conversation history, oldest first.
	Messages []llm.Message `json:"messages"`

	SavedAt time.Time `json:"saved_at"`
}

// LoadSession loads the saved chat session from <dir>/session.json.
// Returns nil, nil if no session was saved.
// If overrideDir is non-empty, it is used instead of the default ~/.mentor/ location.
func (m *Manager) LoadSession(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	state.Context = llm.ParseContext(string(state.Context))

	return state, nil
}

// SaveSession persists the chat session to <dir>/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// ClearSession removes the saved session so the next chat starts fresh.
// Returns nil if there is nothing to clear.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session: %w", err)
	}

	return nil
}
