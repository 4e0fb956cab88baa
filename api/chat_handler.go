package api

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/mentor/pkg/chat"
	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/remote"
	"github.com/papercomputeco/mentor/pkg/sse"
	"github.com/papercomputeco/mentor/pkg/worker"
)

// ChatRequest is the body of POST /v1/chat. The last message is the user's
// new input; the ones before it are the conversation so far.
type ChatRequest struct {
	llm.ChatRequest

	// UserID, when set, persists the completed turn for that user.
	UserID string `json:"user_id,omitempty"`
}

// handleChat relays a streamed reply from the chat function as SSE.
// Failures before the first fragment answer with a JSON error; later ones end
// the stream with an error event.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	req.Normalize()

	n := len(req.Messages)
	if n == 0 || req.Messages[n-1].Role != llm.RoleUser || req.Messages[n-1].IsBlank() {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "last message must be a non-empty user message"})
	}

	opts := []chat.SessionOption{
		chat.WithHistory(req.Messages[:n-1]),
		chat.WithContext(req.Context),
	}
	if req.UserID != "" && s.deps.Turns != nil {
		opts = append(opts, chat.WithTurnHandler(s.enqueueTurn(req.UserID)))
	}
	session := chat.NewSession(s.deps.Chat, opts...)

	pr, pw := io.Pipe()
	r := &relay{
		writer:  sse.NewWriter(pw),
		started: make(chan error, 1),
	}

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns while the relay keeps streaming.
	// A client that goes away closes the pipe, which fails the next write and
	// aborts the upstream decode.
	go func() {
		defer pw.Close()
		_, err := session.Send(context.Background(), req.Messages[n-1].Content, r.forward)
		r.finish(err, s)
	}()

	if err := <-r.started; err != nil {
		pr.Close()
		s.logger.Error("chat upstream failed", "error", err)

		var upErr *remote.UpstreamError
		if errors.As(err, &upErr) && upErr.Message != "" {
			return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: upErr.Message})
		}
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	c.Set(fiber.HeaderContentType, sse.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// enqueueTurn returns a turn handler queueing the turn for persistence.
func (s *Server) enqueueTurn(userID string) func(chat.Turn) {
	return func(t chat.Turn) {
		s.deps.Turns.Enqueue(worker.Job{
			UserID:      userID,
			Context:     t.Context,
			Turn:        []llm.Message{t.User, t.Assistant},
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
		})
	}
}

// relay forwards fragments into the response pipe and tells the handler once
// whether streaming started.
type relay struct {
	writer  *sse.Writer
	started chan error
	once    sync.Once
	began   bool
}

func (r *relay) signal(err error) {
	r.once.Do(func() {
		r.began = err == nil
		r.started <- err
	})
}

func (r *relay) forward(fragment string) error {
	r.signal(nil)
	return r.writer.WriteDelta(fragment)
}

func (r *relay) finish(err error, s *Server) {
	r.signal(err)
	if !r.began {
		return
	}

	if err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			s.logger.Debug("chat client went away")
			return
		}
		s.logger.Warn("chat stream ended early", "error", err)
		_ = r.writer.WriteError("stream interrupted")
		return
	}

	_ = r.writer.WriteDone()
}
