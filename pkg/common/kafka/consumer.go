package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/careconnect-ai/insights/pkg/common/config"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
	topic  string
}

type EventHandler func(ctx context.Context, event models.Event) error

// NewConsumer reads topic as a member of groupID. New groups start at the
// newest offset so a fresh subscriber only sees events published after it joined.
func NewConsumer(topic string, groupID string) *Consumer {
	cfg := config.Load()
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    1e6, // 1MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})

	return &Consumer{reader: reader, topic: topic}
}

func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	log := logger.Component("kafka-consumer").WithField("topic", c.topic)
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			log.WithError(err).Error("Failed to fetch message")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		event := decodeEvent(message)
		if err := handler(ctx, event); err != nil {
			log.WithError(err).WithField("event_id", event.ID).Error("Failed to process event")
			// Don't commit on error, will be redelivered
			continue
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			log.WithError(err).Error("Failed to commit message")
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// decodeEvent never rejects a message: the payload is optional, so anything
// that is not an encoded Event still counts as a bare event.
func decodeEvent(message kafka.Message) models.Event {
	var event models.Event
	if len(message.Value) > 0 {
		if err := json.Unmarshal(message.Value, &event); err != nil {
			event = models.Event{}
		}
	}
	if event.ID == "" {
		event.ID = string(message.Key)
	}
	if event.Type == "" {
		event.Type = headerValue(message.Headers, "event-type")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = message.Time
	}
	return event
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
