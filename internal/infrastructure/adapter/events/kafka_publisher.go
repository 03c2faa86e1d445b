package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/messaging"
)

// KafkaPublisher emits ledger events to a Kafka topic. Messages are keyed by
// reference so all events of one transaction land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger coreport.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger coreport.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger,
	}
}

// Publish writes one ledger event to the topic
func (p *KafkaPublisher) Publish(ctx context.Context, event messaging.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Reference),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
