// Package llm holds the chat types shared by the mentor chat client, the
// delta-stream decoder and the API relay.
package llm

import "strings"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single message in a mentoring conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message with the given text.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant message with the given text.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// IsBlank reports whether the message carries no visible text.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}
