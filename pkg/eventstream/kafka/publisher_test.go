package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/eventstream/kafka"
	"github.com/papercomputeco/mentor/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		pub    *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		var err error
		pub, err = kafka.NewPublisher(kafka.Config{Writer: writer}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires brokers and a topic without an injected writer", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "mentor-events"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("broker")))

		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("topic")))
	})

	It("writes stage events keyed by user with a type header", func() {
		event := eventstream.NewStageCompletedEvent("user-7", 2, 1, time.Now())
		Expect(pub.PublishStageCompleted(context.Background(), event)).To(Succeed())

		Expect(writer.messages).To(HaveLen(1))
		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("user-7"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{
			Key:   kafka.HeaderEventType,
			Value: []byte(eventstream.EventTypeStageCompleted),
		}))

		var decoded eventstream.StageCompletedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Stage).To(Equal(2))
	})

	It("rejects nil events", func() {
		Expect(pub.PublishChatTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("wraps writer failures", func() {
		writer.err = errors.New("broker down")
		err := pub.PublishStageCompleted(context.Background(), eventstream.NewStageCompletedEvent("u", 1, 1, time.Now()))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
