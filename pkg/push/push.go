// Package push connects the dashboard to the insight event channel over
// Kafka or Redis pub/sub.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/common/config"
	"github.com/careconnect-ai/insights/pkg/common/database"
	"github.com/careconnect-ai/insights/pkg/common/models"
)

const eventSource = "careconnect-insights"

// Publisher emits insight events onto a channel.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// NewSubscriber picks the subscriber for cfg.PushTransport. The "none"
// transport returns a nil subscriber and the dashboard polls only.
func NewSubscriber(cfg *config.Config) (analytics.Subscriber, error) {
	switch cfg.PushTransport {
	case config.PushTransportKafka:
		return NewKafkaSubscriber(cfg.KafkaGroupID, instanceID(cfg)), nil
	case config.PushTransportRedis:
		return NewRedisSubscriber(database.GetRedis()), nil
	case config.PushTransportNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown push transport %q", cfg.PushTransport)
	}
}

// instanceID names this process for its consumer group: KAFKA_INSTANCE_ID
// when set, otherwise the hostname.
func instanceID(cfg *config.Config) string {
	if cfg.KafkaInstanceID != "" {
		return cfg.KafkaInstanceID
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}

func NewPublisher(cfg *config.Config, transport, channel string) (Publisher, error) {
	if transport == "" {
		transport = cfg.PushTransport
	}
	switch transport {
	case config.PushTransportKafka:
		return NewKafkaPublisher(channel), nil
	case config.PushTransportRedis:
		return NewRedisPublisher(database.GetRedis(), channel), nil
	default:
		return nil, fmt.Errorf("push transport %q cannot publish", transport)
	}
}

// NewInsightEvent builds the event a record change emits.
func NewInsightEvent(recordID string) models.Event {
	var data map[string]interface{}
	if recordID != "" {
		data = map[string]interface{}{"recordId": recordID}
	}
	return models.NewEvent("insight", eventSource, data)
}

// decodePayload reads a JSON-encoded Event. Payloads that are not events
// still count: the channel carries no data the dashboard relies on.
func decodePayload(channel string, payload []byte) models.Event {
	var event models.Event
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &event); err != nil {
			event = models.Event{}
		}
	}
	if event.ID == "" {
		event = withDefaults(event, channel)
	}
	return event
}

func withDefaults(event models.Event, channel string) models.Event {
	fresh := models.NewEvent("insight", channel, nil)
	event.ID = fresh.ID
	if event.Type == "" {
		event.Type = fresh.Type
	}
	if event.Source == "" {
		event.Source = fresh.Source
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = fresh.Timestamp
	}
	return event
}
