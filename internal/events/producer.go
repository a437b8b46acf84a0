package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaProducer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes promotion events to a Kafka topic keyed by promotion id,
// so every event of one promotion lands on the same partition.
type KafkaProducer struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaProducer creates a producer writing to topic on the given brokers.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaProducerWithWriter(writer)
}

// NewKafkaProducerWithWriter creates a producer with a custom writer.
// This is primarily used for testing.
func NewKafkaProducerWithWriter(writer MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: writer, timeout: 10 * time.Second}
}

// Publish writes one event. The write is bounded by the producer timeout even
// when ctx has no deadline.
func (p *KafkaProducer) Publish(ctx context.Context, event PromotionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.PromotionID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
		Time: event.OccurredAt,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}

	log.Debug().
		Str("event_id", event.EventID).
		Str("event_type", string(event.Type)).
		Int64("promotion_id", event.PromotionID).
		Msg("promotion event published")
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
