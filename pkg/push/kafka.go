package push

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/common/kafka"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/google/uuid"
)

// KafkaSubscriber reads the channel's topic. Each dashboard instance joins
// its own consumer group so every instance sees every event, and a restarted
// instance rejoins the group it left.
type KafkaSubscriber struct {
	groupID string
}

// NewKafkaSubscriber derives the group from groupPrefix and instanceID. An
// empty instanceID falls back to a random one.
func NewKafkaSubscriber(groupPrefix, instanceID string) *KafkaSubscriber {
	return &KafkaSubscriber{groupID: instanceGroupID(groupPrefix, instanceID)}
}

func instanceGroupID(prefix, instanceID string) string {
	instanceID = strings.ToLower(strings.TrimSpace(instanceID))
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	if prefix == "" {
		return instanceID
	}
	return prefix + "-" + instanceID
}

func (s *KafkaSubscriber) GroupID() string { return s.groupID }

func (s *KafkaSubscriber) Subscribe(ctx context.Context, channel string, handler func(ctx context.Context, event models.Event)) (analytics.Subscription, error) {
	groupID := s.groupID
	consumer := kafka.NewConsumer(channel, groupID)

	runCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{cancel: cancel, done: make(chan struct{}), consumer: consumer}

	go func() {
		defer close(sub.done)
		err := consumer.Consume(runCtx, func(ctx context.Context, event models.Event) error {
			handler(ctx, event)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Component("push").WithError(err).WithField("topic", channel).Error("kafka subscription ended")
		}
	}()

	logger.Component("push").WithFields(map[string]interface{}{
		"topic":    channel,
		"group_id": groupID,
	}).Info("kafka subscription started")
	return sub, nil
}

type kafkaSubscription struct {
	cancel   context.CancelFunc
	done     chan struct{}
	consumer *kafka.Consumer
	once     sync.Once
	err      error
}

// Unsubscribe stops the reader loop and waits for it before closing.
func (s *kafkaSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.err = s.consumer.Close()
	})
	return s.err
}

type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(channel string) *KafkaPublisher {
	return &KafkaPublisher{producer: kafka.NewProducer(channel)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.Event) error {
	return p.producer.Publish(ctx, event)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
