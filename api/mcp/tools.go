package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/mentor/pkg/learningpath"
	"github.com/papercomputeco/mentor/pkg/stage"
)

var (
	parseToolName    = "parse_learning_path"
	parseDescription = "Parse a mentor-written learning path into modules with their focus and recommended courses (name, URL and note)."

	notificationToolName    = "next_stage_notification"
	notificationDescription = "Return the stage unlock notification a mentee should see next, given which stages are unlocked. Returns no notification when every unlocked stage was already seen."
)

// ParseInput represents the input arguments for the parse tool.
type ParseInput struct {
	Text string `json:"text" jsonschema:"the learning path text written by the mentor"`
}

// ParseOutput represents the output of the parse tool.
type ParseOutput struct {
	Modules []learningpath.Module `json:"modules"`
	Count   int                   `json:"count"`
}

// NotificationInput represents the input arguments for the notification tool.
type NotificationInput struct {
	UserID                      string `json:"user_id" jsonschema:"the mentee's user id"`
	LinkedInDiagnosticPublished bool   `json:"linkedin_diagnostic_published,omitempty" jsonschema:"the LinkedIn diagnostic was published"`
	Stage2Unlocked              bool   `json:"stage2_unlocked,omitempty" jsonschema:"stage 2 was unlocked by the mentor"`
	OpportunityFunnelPublished  bool   `json:"opportunity_funnel_published,omitempty" jsonschema:"the opportunity funnel was published"`
	HasInterviewHistory         bool   `json:"has_interview_history,omitempty" jsonschema:"the mentee has interview history"`
}

// NotificationOutput represents the output of the notification tool.
type NotificationOutput struct {
	Found   bool   `json:"found"`
	Stage   int    `json:"stage,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (s *Server) handleParseLearningPath(_ context.Context, _ *mcp.CallToolRequest, input ParseInput) (*mcp.CallToolResult, ParseOutput, error) {
	modules := learningpath.Parse(input.Text)
	if modules == nil {
		modules = []learningpath.Module{}
	}

	s.config.Logger.Debug("MCP learning path parsed", "modules", len(modules))

	output := ParseOutput{Modules: modules, Count: len(modules)}
	return textResult(output), output, nil
}

func (s *Server) handleNextNotification(ctx context.Context, _ *mcp.CallToolRequest, input NotificationInput) (*mcp.CallToolResult, NotificationOutput, error) {
	unlocks := stage.Unlocks{
		LinkedInDiagnosticPublished: input.LinkedInDiagnosticPublished,
		Stage2Unlocked:              input.Stage2Unlocked,
		OpportunityFunnelPublished:  input.OpportunityFunnelPublished,
		HasInterviewHistory:         input.HasInterviewHistory,
	}

	n, err := s.config.Notifier.Next(ctx, input.UserID, unlocks)
	if err != nil {
		s.config.Logger.Error("failed to pick notification", "error", err)
		return errorResult(fmt.Sprintf("Failed to load notifications: %v", err)), NotificationOutput{}, nil
	}

	output := NotificationOutput{}
	if n != nil {
		output = NotificationOutput{
			Found:   true,
			Stage:   n.Stage,
			Title:   n.Title,
			Message: n.Message,
			Path:    n.Path,
		}
	}

	return textResult(output), output, nil
}

// textResult serializes the structured output as JSON for the text field, so
// clients without structured content support still get the data.
func textResult(output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
