// Package kafkasink forwards audit events to a Kafka topic as JSON records
// keyed by credential ID, so all events for one credential share a partition.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"

	"vcanchor/internal/platform/kafka/producer"
	"vcanchor/pkg/platform/audit"
)

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

type Sink struct {
	producer Producer
	topic    string
}

func New(p Producer, topic string) *Sink {
	return &Sink{producer: p, topic: topic}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := event.CredentialID
	if key == "" {
		key = event.ResourceID
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	}
	if event.RequestID != "" {
		msg.Headers["request_id"] = event.RequestID
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
