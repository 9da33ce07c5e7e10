package outbox

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes to any topic through one shared writer.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer creates a producer for brokers. Keys are hash-balanced so a
// user's events stay on one partition, in order.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}}
}

// WriteMessages publishes msgs to topic, blocking until acknowledged.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for i := range msgs {
		msgs[i].Topic = topic
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
