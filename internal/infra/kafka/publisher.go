package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

const publishTimeout = 10 * time.Second

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends committed ledger entries to a Kafka topic, keyed by user
// so one user's entries stay ordered within a partition
type Publisher struct {
	writer messageWriter
	logger *logger.Logger
}

var _ movement.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher writing to topic on brokers
func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	log = log.WithField("component", "kafka_publisher")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: publishTimeout,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return newPublisher(writer, log)
}

func newPublisher(w messageWriter, log *logger.Logger) *Publisher {
	return &Publisher{writer: w, logger: log}
}

// Publish writes one message per event. The workflow's context is not
// reused: a cancelled request must not drop events of a committed workflow.
func (p *Publisher) Publish(ctx context.Context, events ...movement.EntryCommitted) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", e.EntryID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.UserID.String()),
			Value: value,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "workflow", Value: []byte(e.Workflow)},
				{Key: "kind", Value: []byte(e.Kind)},
			},
		})
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d ledger events: %w", len(msgs), err)
	}

	p.logger.Debug("ledger events published", "count", len(msgs))
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
