package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/chat"
	"github.com/papercomputeco/mentor/pkg/deltastream"
	"github.com/papercomputeco/mentor/pkg/llm"
)

// fakeStreamer replies with fragments or fails with err. When block is set it
// waits on it before answering.
type fakeStreamer struct {
	fragments []string
	err       error
	block     chan struct{}
	started   chan struct{}
	requests  []llm.ChatRequest
}

func (f *fakeStreamer) Stream(_ context.Context, req llm.ChatRequest, onDelta deltastream.FragmentFunc) (string, error) {
	f.requests = append(f.requests, req)
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}

	var full string
	for _, frag := range f.fragments {
		full += frag
		if onDelta != nil {
			if err := onDelta(frag); err != nil {
				return full, err
			}
		}
	}
	return full, nil
}

var _ = Describe("Session", func() {
	It("records the user message and the streamed reply", func() {
		streamer := &fakeStreamer{fragments: []string{"Olá", "!"}}
		s := chat.NewSession(streamer, chat.WithContext(llm.ContextLinkedIn))

		var seen []string
		reply, err := s.Send(context.Background(), "Oi", func(f string) error {
			seen = append(seen, f)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("Olá!"))
		Expect(seen).To(Equal([]string{"Olá", "!"}))

		Expect(s.Messages()).To(Equal([]llm.Message{
			llm.NewUserMessage("Oi"),
			llm.NewAssistantMessage("Olá!"),
		}))
		Expect(streamer.requests).To(HaveLen(1))
		Expect(streamer.requests[0].Context).To(Equal(llm.ContextLinkedIn))
	})

	It("sends the whole history with each request", func() {
		streamer := &fakeStreamer{fragments: []string{"ok"}}
		s := chat.NewSession(streamer, chat.WithHistory([]llm.Message{
			llm.NewUserMessage("antes"),
			llm.NewAssistantMessage("resposta"),
		}))

		_, err := s.Send(context.Background(), "depois", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(streamer.requests[0].Messages).To(HaveLen(3))
		Expect(s.Messages()).To(HaveLen(4))
	})

	It("ignores blank input", func() {
		streamer := &fakeStreamer{}
		s := chat.NewSession(streamer)

		reply, err := s.Send(context.Background(), "   ", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(BeEmpty())
		Expect(streamer.requests).To(BeEmpty())
		Expect(s.Messages()).To(BeEmpty())
	})

	It("removes the user message when streaming fails", func() {
		streamer := &fakeStreamer{err: errors.New("boom")}
		s := chat.NewSession(streamer, chat.WithHistory([]llm.Message{llm.NewUserMessage("antes")}))

		_, err := s.Send(context.Background(), "falha", nil)
		Expect(err).To(MatchError("boom"))
		Expect(s.Messages()).To(Equal([]llm.Message{llm.NewUserMessage("antes")}))
	})

	It("rejects a send while another is in flight", func() {
		streamer := &fakeStreamer{
			fragments: []string{"done"},
			block:     make(chan struct{}),
			started:   make(chan struct{}),
		}
		s := chat.NewSession(streamer)

		errCh := make(chan error, 1)
		go func() {
			_, err := s.Send(context.Background(), "primeira", nil)
			errCh <- err
		}()

		Eventually(streamer.started).Should(BeClosed())

		_, err := s.Send(context.Background(), "segunda", nil)
		Expect(err).To(MatchError(chat.ErrBusy))

		close(streamer.block)
		Eventually(errCh).Should(Receive(BeNil()))
		Expect(s.Messages()).To(HaveLen(2))
	})

	It("resets the history", func() {
		s := chat.NewSession(&fakeStreamer{}, chat.WithHistory([]llm.Message{llm.NewUserMessage("x")}))
		s.Reset()
		Expect(s.Messages()).To(BeEmpty())
	})

	It("reports each completed turn", func() {
		var turns []chat.Turn
		s := chat.NewSession(
			&fakeStreamer{fragments: []string{"Claro", "!"}},
			chat.WithContext(llm.ContextInterview),
			chat.WithTurnHandler(func(t chat.Turn) { turns = append(turns, t) }),
		)

		_, err := s.Send(context.Background(), "me ajuda?", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(turns).To(HaveLen(1))
		Expect(turns[0].Context).To(Equal(llm.ContextInterview))
		Expect(turns[0].User.Content).To(Equal("me ajuda?"))
		Expect(turns[0].Assistant.Content).To(Equal("Claro!"))
		Expect(turns[0].CompletedAt).NotTo(BeTemporally("<", turns[0].StartedAt))
	})

	It("does not report failed turns", func() {
		called := false
		s := chat.NewSession(
			&fakeStreamer{err: errors.New("boom")},
			chat.WithTurnHandler(func(chat.Turn) { called = true }),
		)

		_, err := s.Send(context.Background(), "oi", nil)
		Expect(err).To(HaveOccurred())
		Expect(called).To(BeFalse())
	})
})
