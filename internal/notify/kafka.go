package notify

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig locates the announcement topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaNotifier publishes each rendered summary to a Kafka topic so
// downstream consumers can mirror announcements to other channels. The
// delivery ID is the produced record's "partition/offset".
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

var _ Notifier = (*KafkaNotifier)(nil)

// NewKafkaNotifier dials the brokers. The connection is lazy; broker
// unavailability surfaces as Post errors, which the dispatcher retries.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: cfg.Topic}, nil
}

func (n *KafkaNotifier) Post(ctx context.Context, text string) (string, error) {
	record := &kgo.Record{Topic: n.topic, Value: []byte(text)}
	results := n.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		return "", fmt.Errorf("produce summary: %w", err)
	}
	produced, err := results.First()
	if err != nil {
		return "", fmt.Errorf("produce summary: %w", err)
	}
	return fmt.Sprintf("%d/%d", produced.Partition, produced.Offset), nil
}

// Close flushes buffered records and releases the client.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
