package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pricelens/backend/internal/domain"
)

// KafkaPublisher publishes price events to a Kafka topic. It satisfies
// domain.PricePublisher; import batches treat publish failures as
// best-effort, so the writer never blocks a batch for long.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string

	enableDebugLogging bool
}

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(cfg KafkaConfig, enableDebugLogging bool) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("no kafka topic configured")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{
		writer:             writer,
		topic:              cfg.Topic,
		enableDebugLogging: enableDebugLogging,
	}, nil
}

// PublishPriceRecorded publishes one price event, keyed by item id so a
// single item's history lands on one partition in order.
func (p *KafkaPublisher) PublishPriceRecorded(ctx context.Context, event *domain.PriceEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.EventType == "" {
		event.EventType = domain.EventTypePriceRecorded
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode price event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ItemID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "place_id", Value: []byte(event.PlaceID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish price event: %w", err)
	}
	if p.enableDebugLogging {
		log.Printf("[EVENTS] Published %s for item %s at %.2f", event.EventType, event.ItemID, event.Price)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards all events. Used when eventing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishPriceRecorded(context.Context, *domain.PriceEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
