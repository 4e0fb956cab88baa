// Package mcp provides an MCP (Model Context Protocol) server exposing mentor
// tools to agents.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/mentor/pkg/stage"
	"github.com/papercomputeco/mentor/pkg/utils"
)

type Config struct {
	// Notifier picks stage unlock notifications
	Notifier *stage.Notifier

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the mentor tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mentor",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Notifier == nil {
			return nil, errors.New("notifier is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        parseToolName,
			Description: parseDescription,
		}, s.handleParseLearningPath)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        notificationToolName,
			Description: notificationDescription,
		}, s.handleNextNotification)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying MCP server, used to connect in-process
// transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
