package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/SGK112/remodely-importer/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ContractorEvent represents a lifecycle event about a contractor
type ContractorEvent struct {
	EventType     string    `json:"event_type"` // contractor.created, contractor.updated
	ContractorID  string    `json:"contractor_id"`
	LicenseNumber string    `json:"license_number,omitempty"`
	BusinessName  string    `json:"business_name"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	Specialties   []string  `json:"specialties,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	ScrapedFrom   string    `json:"scraped_from"`
	Timestamp     time.Time `json:"timestamp"`
}

// PublishContractorEvent publishes a contractor event to Kafka
func (p *Producer) PublishContractorEvent(ctx context.Context, event *ContractorEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishContractorEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.LicenseNumber),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "scraped_from", Value: []byte(event.ScrapedFrom)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish contractor event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":     event.EventType,
		"contractor_id":  event.ContractorID,
		"license_number": event.LicenseNumber,
	}).Debug("Published contractor event")

	return nil
}
