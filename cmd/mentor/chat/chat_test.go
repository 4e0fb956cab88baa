package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/deltastream"
	"github.com/papercomputeco/mentor/pkg/dotdir"
	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/logger"
)

// echoStreamer replies with the last user message in two fragments.
type echoStreamer struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
	fail     bool
}

func (e *echoStreamer) Stream(_ context.Context, req llm.ChatRequest, onDelta deltastream.FragmentFunc) (string, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.fail {
		return "", errors.New("upstream unavailable")
	}

	last := req.Messages[len(req.Messages)-1].Content
	for _, frag := range []string{"eco: ", last} {
		if err := onDelta(frag); err != nil {
			return "", err
		}
	}
	return "eco: " + last, nil
}

var _ = Describe("chatCommander", func() {
	var (
		streamer *echoStreamer
		out      *bytes.Buffer
		dir      string
		dirs     *dotdir.Manager
	)

	newCommander := func(input string) *chatCommander {
		return &chatCommander{
			context:   "linkedin",
			configDir: dir,
			in:        strings.NewReader(input),
			out:       out,
			streamer:  streamer,
			dirs:      dirs,
			logger:    logger.Nop(),
		}
	}

	BeforeEach(func() {
		streamer = &echoStreamer{}
		out = &bytes.Buffer{}
		dir = GinkgoT().TempDir()
		dirs = dotdir.NewManager()
	})

	It("streams replies and saves the conversation", func() {
		Expect(newCommander("oi\n/exit\n").run(context.Background())).To(Succeed())

		Expect(out.String()).To(ContainSubstring("eco: oi"))
		Expect(streamer.requests).To(HaveLen(1))
		Expect(streamer.requests[0].Context).To(Equal(llm.ContextLinkedIn))

		state, err := dirs.LoadSession(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Context).To(Equal(llm.ContextLinkedIn))
		Expect(state.Messages).To(Equal([]llm.Message{
			llm.NewUserMessage("oi"),
			llm.NewAssistantMessage("eco: oi"),
		}))
	})

	It("switches context and keeps the history", func() {
		Expect(newCommander("oi\n/context interview\nsimule\n").run(context.Background())).To(Succeed())

		Expect(streamer.requests).To(HaveLen(2))
		second := streamer.requests[1]
		Expect(second.Context).To(Equal(llm.ContextInterview))
		Expect(second.Messages).To(HaveLen(3))
	})

	It("resumes a saved conversation", func() {
		Expect(dirs.SaveSession(&dotdir.SessionState{
			Context:  llm.ContextCV,
			Messages: []llm.Message{llm.NewUserMessage("antes"), llm.NewAssistantMessage("ok")},
		}, dir)).To(Succeed())

		c := newCommander("depois\n")
		c.resume = true
		Expect(c.run(context.Background())).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Resuming"))
		Expect(streamer.requests[0].Context).To(Equal(llm.ContextCV))
		Expect(streamer.requests[0].Messages).To(HaveLen(3))
	})

	It("reports failures and keeps going", func() {
		streamer.fail = true
		Expect(newCommander("oi\n").run(context.Background())).To(Succeed())

		Expect(out.String()).To(ContainSubstring("upstream unavailable"))

		state, err := dirs.LoadSession(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("clears the saved conversation on /reset", func() {
		Expect(newCommander("oi\n/reset\n").run(context.Background())).To(Succeed())

		state, err := dirs.LoadSession(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})

var _ = Describe("NewChatCmd", func() {
	It("registers its flags", func() {
		cmd := NewChatCmd()
		for _, name := range []string{"upstream", "api-key", "api-target", "context", "local", "resume", "markdown"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})
