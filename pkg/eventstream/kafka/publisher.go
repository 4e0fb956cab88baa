// Package kafka publishes mentoring events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/mentor/pkg/eventstream"
)

// HeaderEventType carries the event type on every message.
const HeaderEventType = "event_type"

// Writer is the subset of *kafkago.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config is the publisher configuration.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to 10 seconds.
	WriteTimeout time.Duration

	// Writer overrides the kafka-go writer built from Brokers and Topic.
	Writer Writer
}

// Publisher writes JSON encoded events keyed by user id, so every event of
// one user lands on the same partition.
type Publisher struct {
	writer  Writer
	timeout time.Duration
	logger  *slog.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	w := cfg.Writer
	if w == nil {
		if len(cfg.Brokers) == 0 {
			return nil, errors.New("kafka publisher requires at least one broker")
		}
		if cfg.Topic == "" {
			return nil, errors.New("kafka publisher requires a topic")
		}

		w = &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Publisher{
		writer:  w,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// PublishStageCompleted writes a stage completed event.
func (p *Publisher) PublishStageCompleted(ctx context.Context, event *eventstream.StageCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.UserID, event.EventType, event.EventID, event)
}

// PublishChatTurn writes a chat turn event.
func (p *Publisher) PublishChatTurn(ctx context.Context, event *eventstream.ChatTurnPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.UserID, event.EventType, event.EventID, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType, eventID string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	p.logger.Debug("published event",
		"event_type", eventType,
		"event_id", eventID,
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
