package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	kafka "github.com/segmentio/kafka-go"

	"github.com/openlistings/beacon/pkg/tracing"
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

// AuditEvent records a decision or outcome of an alert run
type AuditEvent struct {
	EventType  string          `json:"event_type"` // access.decision, alert.sent, run.completed
	RunID      string          `json:"run_id,omitempty"`
	BuyerID    string          `json:"buyer_id,omitempty"`
	PropertyID string          `json:"property_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// EmailJob is a rendered-template send request for the platform mailer
type EmailJob struct {
	JobID     string          `json:"job_id"`
	Recipient string          `json:"recipient"`
	Name      string          `json:"name"`
	Template  string          `json:"template"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PublishAuditEvent publishes an audit event to Kafka
func (p *Producer) PublishAuditEvent(ctx context.Context, event *AuditEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishAuditEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := event.BuyerID
	if key == "" {
		key = event.RunID
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "property_id", Value: []byte(event.PropertyID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish audit event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":  event.EventType,
		"buyer_id":    event.BuyerID,
		"property_id": event.PropertyID,
	}).Debug("Published audit event")

	return nil
}

// PublishEmailJob publishes an email send job to Kafka
func (p *Producer) PublishEmailJob(ctx context.Context, job *EmailJob) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishEmailJob")
	defer span.End()

	if job.Timestamp.IsZero() {
		job.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(job.Recipient),
		Value: data,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(job.Template)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish email job")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":   job.JobID,
		"template": job.Template,
	}).Debug("Published email job")

	return nil
}
