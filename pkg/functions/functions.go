// Package functions invokes the backend's one-shot generation functions
// (ATS résumé, interview scripts, career intro, interview analysis, PDF
// extraction and the guided mentor chat). Payloads are opaque JSON: mentor
// does not interpret what the prompts produce.
package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/papercomputeco/mentor/pkg/logger"
	"github.com/papercomputeco/mentor/pkg/remote"
)

// Function names as deployed on the backend.
const (
	GenerateATSCV               = "generate-ats-cv"
	GenerateInterviewScripts    = "generate-interview-scripts"
	GenerateCareerIntro         = "generate-career-intro"
	AnalyzeInterviewPerformance = "analyze-interview-performance"
	ExtractCVPDF                = "extract-cv-pdf"
	MentorChat                  = "mentor-chat"
)

const pathPrefix = "/functions/v1/"

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ErrInvalidName is returned for function names that cannot be part of a path.
var ErrInvalidName = errors.New("invalid function name")

// Known reports whether name is one of the functions mentor calls.
func Known(name string) bool {
	switch name {
	case GenerateATSCV, GenerateInterviewScripts, GenerateCareerIntro,
		AnalyzeInterviewPerformance, ExtractCVPDF, MentorChat:
		return true
	default:
		return false
	}
}

// Client invokes generation functions.
type Client struct {
	remote *remote.Client
	logger *slog.Logger
}

// NewClient creates a Client. A nil logger discards output.
func NewClient(rc *remote.Client, l *slog.Logger) (*Client, error) {
	if rc == nil {
		return nil, errors.New("remote client is required")
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Client{remote: rc, logger: l}, nil
}

// Invoke calls the named function with in as the JSON body and decodes the
// JSON reply into out.
func (c *Client) Invoke(ctx context.Context, name string, in, out any) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	start := time.Now()
	err := c.remote.DecodeJSON(ctx, pathPrefix+name, in, out)
	if err != nil {
		c.logger.Warn("function invocation failed",
			"function", name,
			"duration", time.Since(start),
			"error", err,
		)
		return fmt.Errorf("invoking %s: %w", name, err)
	}

	c.logger.Debug("function invoked",
		"function", name,
		"duration", time.Since(start),
	)
	return nil
}

// InvokeRaw calls the named function and returns the reply untouched.
func (c *Client) InvokeRaw(ctx context.Context, name string, in json.RawMessage) (json.RawMessage, error) {
	if len(in) == 0 {
		in = json.RawMessage("{}")
	}

	var out json.RawMessage
	if err := c.Invoke(ctx, name, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}
