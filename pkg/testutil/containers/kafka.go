//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaContainer wraps a Kafka-compatible broker for audit sink tests.
type KafkaContainer struct {
	Container *kafka.KafkaContainer
	Brokers   string
}

// NewKafkaContainer starts a Redpanda broker, which boots faster than Kafka
// and speaks the same protocol.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()
	ctx := context.Background()

	container, err := kafka.Run(ctx,
		"redpandadata/redpanda:v24.2.7",
		kafka.WithClusterID("vcanchor-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}

	brokers, err := container.Brokers(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get kafka brokers: %v", err)
	}
	return &KafkaContainer{Container: container, Brokers: brokers[0]}
}

// CreateTopic creates topic with one replica.
func (k *KafkaContainer) CreateTopic(ctx context.Context, topic string, partitions int32) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(k.Brokers))
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := kadm.NewClient(client).CreateTopic(ctx, partitions, 1, nil, topic)
	if err != nil {
		return err
	}
	return resp.Err
}

// NewConsumer reads topics from the earliest offset.
func (k *KafkaContainer) NewConsumer(topics ...string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(k.Brokers),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
}

// WaitForRecord polls until match accepts a record or timeout elapses.
// It returns nil on timeout.
func (k *KafkaContainer) WaitForRecord(ctx context.Context, client *kgo.Client, timeout time.Duration, match func(*kgo.Record) bool) *kgo.Record {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for ctx.Err() == nil {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		var found *kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			if found == nil && match(r) {
				found = r
			}
		})
		if found != nil {
			return found
		}
	}
	return nil
}
