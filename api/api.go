package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mentor/pkg/authz"
	"github.com/papercomputeco/mentor/pkg/chat"
	"github.com/papercomputeco/mentor/pkg/stage"
	"github.com/papercomputeco/mentor/pkg/storage"
	"github.com/papercomputeco/mentor/pkg/worker"
)

const defaultHistoryLimit = 50

// FunctionInvoker runs a named document generation function.
type FunctionInvoker interface {
	InvokeRaw(ctx context.Context, name string, in json.RawMessage) (json.RawMessage, error)
}

// TurnQueue accepts chat turns for asynchronous persistence.
type TurnQueue interface {
	Enqueue(job worker.Job) bool
}

// Deps are the collaborators the API server is wired with.
type Deps struct {
	// Chat streams replies from the remote chat function.
	Chat chat.Streamer

	// Storage backs notifications, progress and transcripts.
	Storage storage.Driver

	// Roles answers role queries. Optional.
	Roles authz.RoleChecker

	// Functions runs document generation. Optional.
	Functions FunctionInvoker

	// Turns persists chat turns of identified users. Optional.
	Turns TurnQueue

	// Tracker records completed stages.
	Tracker *stage.Tracker

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// Server is the API server for the mentoring backend.
type Server struct {
	config       Config
	deps         Deps
	notifier     *stage.Notifier
	historyLimit atomic.Int64
	logger       *slog.Logger
	app          *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Chat == nil {
		return nil, errors.New("chat streamer is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("storage driver is required")
	}
	if deps.Tracker == nil {
		deps.Tracker = stage.NewTracker(deps.Storage, nil, logger)
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaultHistoryLimit
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		deps:     deps,
		notifier: stage.NewNotifier(deps.Storage, logger),
		logger:   logger,
		app:      app,
	}
	s.historyLimit.Store(int64(config.HistoryLimit))

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/chat", s.handleChat)
	v1.Post("/learning-path/parse", s.handleParseLearningPath)
	v1.Post("/functions/:name", s.handleInvokeFunction)

	users := v1.Group("/users/:user")
	users.Get("/notifications/next", s.handleNextNotification)
	users.Post("/notifications/:stage/seen", s.handleMarkSeen)
	users.Get("/stages", s.handleListStages)
	users.Post("/stages/:stage/complete", s.handleCompleteStage)
	users.Get("/messages", s.handleListMessages)
	users.Get("/roles/:role", s.handleHasRole)

	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	return s, nil
}

// SetHistoryLimit changes the default number of transcript messages
// returned by GET /v1/users/:user/messages. Non-positive values are ignored.
func (s *Server) SetHistoryLimit(n int) {
	if n > 0 {
		s.historyLimit.Store(int64(n))
	}
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
