package llm

import "strings"

// Context tags the mentoring area a chat request belongs to. The remote chat
// function picks its system prompt from it.
type Context string

const (
	ContextCV        Context = "cv"
	ContextLinkedIn  Context = "linkedin"
	ContextInterview Context = "interview"
	ContextGeneral   Context = "general"
)

// ParseContext maps a user supplied tag to a known Context. Unknown and empty
// values fall back to ContextGeneral.
func ParseContext(s string) Context {
	switch c := Context(strings.ToLower(strings.TrimSpace(s))); c {
	case ContextCV, ContextLinkedIn, ContextInterview, ContextGeneral:
		return c
	default:
		return ContextGeneral
	}
}

// ChatRequest is the body sent to the remote chat function.
type ChatRequest struct {
	// Conversation messages, oldest first.
	Messages []Message `json:"messages"`

	// Context selects the mentoring area. Empty is sent as "general".
	Context Context `json:"context"`
}

// Normalize fills defaults so the request can be sent as-is.
func (r *ChatRequest) Normalize() {
	r.Context = ParseContext(string(r.Context))
	if r.Messages == nil {
		r.Messages = []Message{}
	}
}
