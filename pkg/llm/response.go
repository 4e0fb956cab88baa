package llm

// ErrorResponse is the JSON error body used by the remote functions and by
// the mentor API.
type ErrorResponse struct {
	Error string `json:"error"`
}
