package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/KeyTerm-Intelligence/internal/config"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	RecordsSent   atomic.Int64
	RecordsFailed atomic.Int64
	BytesSent     atomic.Int64
}

// Producer publishes extracted records to the output topic. Messages are
// keyed by problem ID so attempts for one problem stay on one partition.
type Producer struct {
	writer  WriterInterface
	topic   string
	source  string
	logger  logging.Logger
	closed  atomic.Bool
	metrics *ProducerMetrics
}

// NewProducer creates a Producer from the Kafka configuration.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	topic := cfg.OutputTopic
	if topic == "" {
		topic = TopicRecordsExtracted
	}
	retries := cfg.ProducerRetries
	if retries == 0 {
		retries = 3
	}
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  retries + 1,
		BatchSize:    batchSize,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer:  writer,
		topic:   topic,
		source:  "keyterm",
		logger:  log,
		metrics: &ProducerMetrics{},
	}, nil
}

// NewProducerWithWriter wraps an existing writer. Used by tests.
func NewProducerWithWriter(w WriterInterface, topic string, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{
		writer:  w,
		topic:   topic,
		source:  "keyterm",
		logger:  log,
		metrics: &ProducerMetrics{},
	}
}

// PublishRecord publishes a single extracted record.
func (p *Producer) PublishRecord(ctx context.Context, rec *record.Record) error {
	return p.PublishRecords(ctx, []*record.Record{rec})
}

// PublishRecords publishes a batch of extracted records.
func (p *Producer) PublishRecords(ctx context.Context, recs []*record.Record) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(recs) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(recs))
	var bytes int64
	for _, rec := range recs {
		env := NewRecordEnvelope("record.extracted", p.source, rec)
		data, err := env.Encode()
		if err != nil {
			return err
		}
		bytes += int64(len(data))
		msgs = append(msgs, kafka.Message{
			Key:   []byte(rec.ProblemID),
			Value: data,
			Time:  env.Timestamp,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(env.EventType)},
				{Key: "schema_version", Value: []byte(env.SchemaVersion)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.metrics.RecordsFailed.Add(int64(len(recs)))
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to publish records")
	}

	p.metrics.RecordsSent.Add(int64(len(recs)))
	p.metrics.BytesSent.Add(bytes)
	p.logger.Debug("Records published",
		logging.String("topic", p.topic),
		logging.Int("count", len(recs)))
	return nil
}

// Metrics returns a snapshot of the producer counters.
func (p *Producer) Metrics() (sent, failed, bytes int64) {
	return p.metrics.RecordsSent.Load(), p.metrics.RecordsFailed.Load(), p.metrics.BytesSent.Load()
}

// Close closes the producer. Safe to call more than once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.RecordsSent.Load()))
	return err
}
