// Package kafka wires the franz-go producer used by the audit mirror.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"gatherhall/internal/platform/config"
)

// Producer wraps a kgo client pinned to a single topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the brokers and ensures the topic exists.
// Returns nil if no brokers are configured (mirroring disabled).
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adm := kadm.NewClient(client)
	// Idempotent: topic-exists errors are ignored.
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, cfg.Topic); err != nil {
		resp, lerr := adm.ListTopics(ctx, cfg.Topic)
		if lerr != nil || !resp.Has(cfg.Topic) {
			client.Close()
			return nil, fmt.Errorf("ensure kafka topic %q: %w", cfg.Topic, err)
		}
	}

	return &Producer{client: client, topic: cfg.Topic}, nil
}

// Produce publishes one record keyed by key, waiting for the broker ack.
func (p *Producer) Produce(ctx context.Context, key, value []byte) error {
	rec := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	return p.client.ProduceSync(ctx, rec).FirstErr()
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}
