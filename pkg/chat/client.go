// Package chat streams mentor conversations from the remote chat function.
//
// Client performs a single streamed request. Session layers conversation
// history on top of it the way the mentoring UI uses it: one request in
// flight at a time, and a failed turn leaves no trace in the history.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/papercomputeco/mentor/pkg/deltastream"
	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/logger"
	"github.com/papercomputeco/mentor/pkg/remote"
)

// DefaultPath is the chat function path relative to the backend base URL.
const DefaultPath = "/functions/v1/chat"

// Streamer streams one chat completion, forwarding fragments to onDelta and
// returning the full assistant text.
type Streamer interface {
	Stream(ctx context.Context, req llm.ChatRequest, onDelta deltastream.FragmentFunc) (string, error)
}

// Config configures a Client.
type Config struct {
	// Remote is the backend client used to send the request.
	Remote *remote.Client

	// Path overrides DefaultPath.
	Path string

	// RequireDone treats a stream that ends without the done sentinel as
	// failed. Set it when talking to the mentor API, which always terminates
	// a successful reply with the sentinel.
	RequireDone bool

	// Logger is the configured slog logger.
	Logger *slog.Logger
}

// Client is a Streamer backed by the remote chat function.
type Client struct {
	remote  *remote.Client
	path    string
	decoder *deltastream.Decoder
	logger  *slog.Logger
}

var _ Streamer = (*Client)(nil)

// NewClient creates a chat Client.
func NewClient(c Config) (*Client, error) {
	if c.Remote == nil {
		return nil, errors.New("remote client is required")
	}

	path := c.Path
	if path == "" {
		path = DefaultPath
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	opts := []deltastream.Option{deltastream.WithLogger(l), deltastream.WithErrorRecords()}
	if c.RequireDone {
		opts = append(opts, deltastream.WithRequireDone())
	}

	return &Client{
		remote:  c.Remote,
		path:    path,
		decoder: deltastream.New(opts...),
		logger:  l,
	}, nil
}

// Stream sends req and decodes the streamed reply. Status failures are
// reported before any fragment is delivered. Once streaming starts, transport
// failures, cancellation and in-stream {"error": ...} records end it with an
// error, and so does a missing sentinel when RequireDone is set.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest, onDelta deltastream.FragmentFunc) (string, error) {
	req.Normalize()

	c.logger.Debug("sending chat request",
		"path", c.path,
		"context", req.Context,
		"message_count", len(req.Messages),
	)

	resp, err := c.remote.PostJSON(ctx, c.path, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = c.decoder.Decode(ctx, resp.Body, func(fragment string) error {
		full.WriteString(fragment)
		if onDelta != nil {
			return onDelta(fragment)
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}

	c.logger.Debug("chat stream complete", "chars", full.Len())
	return full.String(), nil
}
