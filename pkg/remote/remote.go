// Package remote is the HTTP plumbing shared by every client that talks to the
// managed backend: the streaming chat function, the document generation
// functions and the role RPC.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/utils"
)

// defaultTimeout bounds a whole request including reading a streamed body.
// AI generation is slow, so this is generous.
const defaultTimeout = 5 * time.Minute

// ErrNoBody is returned when a successful response has no body at all. An
// empty body is not an error.
var ErrNoBody = errors.New("response body not available")

// UpstreamError is returned for non-2xx responses.
type UpstreamError struct {
	StatusCode int

	// Message is the "error" field of the JSON body when present.
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Temporary reports whether retrying the same request may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://project.example.co".
	BaseURL string

	// APIKey is sent as a bearer token. Empty disables the header.
	APIKey string

	// Timeout overrides the default request timeout. Ignored when HTTPClient
	// is set.
	Timeout time.Duration

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Client sends authenticated JSON requests to the backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// PostJSON marshals body, POSTs it to path and returns the response when the
// status is 2xx. Any other status is turned into an *UpstreamError and the
// body is closed. On success the caller owns resp.Body.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}

	if resp.Body == nil {
		return nil, ErrNoBody
	}

	return resp, nil
}

// DecodeJSON POSTs body to path and decodes the JSON response into out.
func (c *Client) DecodeJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.PostJSON(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

func upstreamError(resp *http.Response) *UpstreamError {
	upErr := &UpstreamError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return upErr
	}

	var body llm.ErrorResponse
	if json.Unmarshal(raw, &body) == nil {
		upErr.Message = body.Error
	}
	return upErr
}
