package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher emits quiz lifecycle events. Publishing is best effort,
// callers log failures but never fail the user-facing operation on a
// broker problem.
type Publisher interface {
	Publish(ctx context.Context, topic string, event interface{}) error
	Close() error
}

type kafkaPublisher struct {
	publisher message.Publisher
}

// NewKafkaPublisher connects to the brokers through watermill.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &kafkaPublisher{publisher: publisher}, nil
}

func (p *kafkaPublisher) Publish(_ context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.publisher.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func NewNoopPublisher() Publisher { return &NoopPublisher{} }

func (p *NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (p *NoopPublisher) Close() error                                       { return nil }

// MockPublisher records published events for tests.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

type PublishedEvent struct {
	Topic string
	Event interface{}
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(_ context.Context, topic string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Topic: topic, Event: event})
	return nil
}

func (p *MockPublisher) Close() error { return nil }

func (p *MockPublisher) PublishedEvents() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
