package worker

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/logger"
	"github.com/papercomputeco/mentor/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/mentor/pkg/utils/test"
)

// newTestPool creates a worker pool backed by an in-memory driver.
// Callers should "wp.Close()" to drain enqueued jobs before asserting storage state.
func newTestPool(publisher *testutils.MockPublisher) (*Pool, *inmemory.Driver) {
	driver := inmemory.NewDriver()

	cfg := &Config{
		Driver: driver,
		Logger: logger.Nop(),
	}
	if publisher != nil {
		cfg.Publisher = publisher
	}

	wp, err := NewPool(cfg)
	Expect(err).NotTo(HaveOccurred())

	return wp, driver
}

func turnJob(user, question, answer string) Job {
	now := time.Now()
	return Job{
		UserID:      user,
		Context:     llm.ContextLinkedIn,
		Turn:        []llm.Message{llm.NewUserMessage(question), llm.NewAssistantMessage(answer)},
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *Pool
		driver    *inmemory.Driver
		publisher *testutils.MockPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		publisher = testutils.NewMockPublisher()
		wp, driver = newTestPool(publisher)
		ctx = context.Background()
	})

	It("requires a storage driver", func() {
		_, err := NewPool(&Config{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
		wp.Close()
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(turnJob("user-1", "oi", "olá"))).To(BeTrue())
			wp.Close()
		})

		It("returns false once the pool is closed", func() {
			wp.Close()
			Expect(wp.Enqueue(turnJob("user-1", "oi", "olá"))).To(BeFalse())
		})

		It("drops jobs when the queue is full", func() {
			blocked := &Pool{
				config: &Config{Driver: driver},
				queue:  make(chan Job, 1),
				logger: logger.Nop(),
			}
			Expect(blocked.Enqueue(turnJob("user-1", "a", "b"))).To(BeTrue())
			Expect(blocked.Enqueue(turnJob("user-1", "c", "d"))).To(BeFalse())
			wp.Close()
		})
	})

	Describe("turn storage", func() {
		BeforeEach(func() {
			wp.Enqueue(turnJob("user-1", "Como melhoro meu headline?", "Destaque seu cargo alvo."))
			wp.Enqueue(turnJob("user-2", "oi", ""))

			// Drain the worker pool to ensure storage completes before assertions
			wp.Close()
		})

		It("stores the user message and the reply in order", func() {
			msgs, err := driver.ListMessages(ctx, "user-1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(llm.RoleUser))
			Expect(msgs[1].Role).To(Equal(llm.RoleAssistant))
			Expect(msgs[1].Content).To(Equal("Destaque seu cargo alvo."))
			Expect(msgs[0].Context).To(Equal(llm.ContextLinkedIn))
		})

		It("skips blank messages", func() {
			msgs, err := driver.ListMessages(ctx, "user-2", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(1))
		})

		It("publishes one event per stored turn", func() {
			events := publisher.ChatTurns()
			Expect(events).To(HaveLen(2))

			byUser := map[string]int{}
			for _, e := range events {
				byUser[e.UserID] = len(e.MessageIDs)
			}
			Expect(byUser).To(Equal(map[string]int{"user-1": 2, "user-2": 1}))
		})
	})

	It("still stores turns when publishing fails", func() {
		publisher.Fail = true
		wp.Enqueue(turnJob("user-1", "oi", "olá"))
		wp.Close()

		msgs, err := driver.ListMessages(ctx, "user-1", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(2))
	})
})
