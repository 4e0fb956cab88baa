package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mentor/pkg/functions"
	"github.com/papercomputeco/mentor/pkg/learningpath"
	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/remote"
	"github.com/papercomputeco/mentor/pkg/stage"
	"github.com/papercomputeco/mentor/pkg/storage"
)

// NextNotificationResponse wraps the notification to show, if any.
type NextNotificationResponse struct {
	Notification *stage.Notification `json:"notification"`
}

// RoleResponse is the answer to a role query.
type RoleResponse struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	HasRole bool   `json:"has_role"`
}

// LearningPathRequest is the JSON form of a parse request.
type LearningPathRequest struct {
	Text string `json:"text"`
}

// LearningPathResponse holds the parsed modules.
type LearningPathResponse struct {
	Modules []learningpath.Module `json:"modules"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleNextNotification returns the next stage unlock notification.
func (s *Server) handleNextNotification(c *fiber.Ctx) error {
	var unlocks stage.Unlocks
	if err := c.QueryParser(&unlocks); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid unlock flags"})
	}

	n, err := s.notifier.Next(c.Context(), c.Params("user"), unlocks)
	if err != nil {
		s.logger.Error("failed to pick notification", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load notifications"})
	}

	return c.JSON(NextNotificationResponse{Notification: n})
}

// handleMarkSeen records a notification as seen.
func (s *Server) handleMarkSeen(c *fiber.Ctx) error {
	n, err := c.ParamsInt("stage")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "stage must be a number"})
	}

	if err := s.notifier.MarkSeen(c.Context(), c.Params("user"), n); err != nil {
		if errors.Is(err, stage.ErrInvalidStage) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to mark notification seen", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to mark notification seen"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleListStages returns the user's stage progress.
func (s *Server) handleListStages(c *fiber.Ctx) error {
	progress, err := s.deps.Tracker.List(c.Context(), c.Params("user"))
	if err != nil {
		s.logger.Error("failed to list progress", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list progress"})
	}
	if progress == nil {
		progress = []storage.StageProgress{}
	}

	return c.JSON(progress)
}

// handleCompleteStage marks a stage as completed.
func (s *Server) handleCompleteStage(c *fiber.Ctx) error {
	n, err := c.ParamsInt("stage")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "stage must be a number"})
	}

	progress, err := s.deps.Tracker.Complete(c.Context(), c.Params("user"), n)
	if err != nil {
		if errors.Is(err, stage.ErrInvalidStage) || errors.Is(err, storage.ErrEmptyUser) {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to complete stage", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to complete stage"})
	}

	return c.JSON(progress)
}

// handleListMessages returns the user's stored transcript, oldest first.
func (s *Server) handleListMessages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", int(s.historyLimit.Load()))

	msgs, err := s.deps.Storage.ListMessages(c.Context(), c.Params("user"), limit)
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list messages"})
	}

	return c.JSON(msgs)
}

// handleHasRole answers whether the user holds a role.
func (s *Server) handleHasRole(c *fiber.Ctx) error {
	if s.deps.Roles == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(llm.ErrorResponse{Error: "role checks are not configured"})
	}

	userID, role := c.Params("user"), c.Params("role")
	ok, err := s.deps.Roles.HasRole(c.Context(), userID, role)
	if err != nil {
		s.logger.Warn("role check failed", "user_id", userID, "role", role, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "role check failed"})
	}

	return c.JSON(RoleResponse{UserID: userID, Role: role, HasRole: ok})
}

// handleParseLearningPath parses a learning path sent as plain text or as
// {"text": "..."}.
func (s *Server) handleParseLearningPath(c *fiber.Ctx) error {
	text := string(c.Body())
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		var req LearningPathRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
		}
		text = req.Text
	}

	modules := learningpath.Parse(text)
	if modules == nil {
		modules = []learningpath.Module{}
	}

	return c.JSON(LearningPathResponse{Modules: modules})
}

// handleInvokeFunction forwards an opaque payload to a generation function.
func (s *Server) handleInvokeFunction(c *fiber.Ctx) error {
	if s.deps.Functions == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(llm.ErrorResponse{Error: "functions are not configured"})
	}

	name := c.Params("name")
	if !functions.Known(name) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "unknown function: " + name})
	}

	body := c.Body()
	if len(body) > 0 && !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "body must be JSON"})
	}

	out, err := s.deps.Functions.InvokeRaw(c.Context(), name, json.RawMessage(body))
	if err != nil {
		var upErr *remote.UpstreamError
		if errors.As(err, &upErr) && upErr.StatusCode < fiber.StatusInternalServerError {
			return c.Status(upErr.StatusCode).JSON(llm.ErrorResponse{Error: upErr.Error()})
		}
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(out)
}
