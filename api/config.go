// Package api provides the mentor HTTP API: the streaming chat relay, stage
// notifications and progress, role checks, learning path parsing and the
// document generation pass-through.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// HistoryLimit caps the messages returned by the transcript endpoint
	// when the caller does not ask for a limit.
	HistoryLimit int
}
