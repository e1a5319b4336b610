// Package kafka implements a Kafka-backed ingest event publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Config controls the Kafka writer.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes JSON-encoded events to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
}

// New builds a Publisher. The topic passed to Publish is used as the message
// key; the destination topic is fixed at construction.
func New(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("publisher.brokers is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("publisher.topic is required")
	}
	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafkago.LeastBytes{},
	}
	return &Publisher{writer: writer}, nil
}

// Publish marshals the payload to JSON and writes it to the topic. The
// returned ID is a generated message UUID carried in the headers.
func (p *Publisher) Publish(ctx context.Context, key string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	id := uuid.NewString()
	msg := kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "message_id", Value: []byte(id)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
