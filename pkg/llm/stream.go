package llm

// StreamChunk is a single OpenAI-shaped streaming record as carried after the
// "data: " prefix of an event stream line. Only the fields mentor reads or
// writes are modelled.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is one entry of StreamChunk.Choices.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

// StreamDelta carries the incremental text of a choice.
type StreamDelta struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// NewContentChunk builds a chunk carrying a single content fragment.
func NewContentChunk(content string) StreamChunk {
	return StreamChunk{
		Choices: []StreamChoice{{Delta: StreamDelta{Content: content}}},
	}
}

// Fragment returns choices[0].delta.content, or "" when absent.
func (c *StreamChunk) Fragment() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}
