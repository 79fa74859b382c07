package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/KeyTerm-Intelligence/internal/config"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeInternal, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeInternal, "consumer closed")
)

// RecordHandler processes one incoming record. A non-nil error triggers the
// consumer's retry and dead letter handling.
type RecordHandler func(ctx context.Context, env *RecordEnvelope) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerMetrics holds consumer counters.
type ConsumerMetrics struct {
	RecordsConsumed     atomic.Int64
	RecordsProcessed    atomic.Int64
	RecordsFailed       atomic.Int64
	RecordsRetried      atomic.Int64
	RecordsDeadLettered atomic.Int64
	Lag                 atomic.Int64
}

// Consumer reads raw records from the input topic and hands each to the
// registered handler. Failed records are retried with exponential backoff and
// then dead lettered so consumption never stalls on one bad message.
type Consumer struct {
	reader     ReaderInterface
	handler    RecordHandler
	logger     logging.Logger
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	deadLetter *Producer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *ConsumerMetrics
}

// NewConsumer creates a Consumer from the Kafka configuration. The dead
// letter producer may be nil, in which case exhausted records are dropped
// after logging.
func NewConsumer(cfg config.KafkaConfig, handler RecordHandler, deadLetter *Producer, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "group id required")
	}
	if handler == nil {
		return nil, errors.New(errors.ErrCodeValidation, "handler required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	topic := cfg.InputTopic
	if topic == "" {
		topic = TopicRecordsRaw
	}
	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          10 * 1024 * 1024,
		StartOffset:       startOffset,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	return newConsumer(reader, handler, deadLetter, log), nil
}

// NewConsumerWithReader wraps an existing reader. Used by tests.
func NewConsumerWithReader(r ReaderInterface, handler RecordHandler, deadLetter *Producer, log logging.Logger) *Consumer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return newConsumer(r, handler, deadLetter, log)
}

func newConsumer(r ReaderInterface, handler RecordHandler, deadLetter *Producer, log logging.Logger) *Consumer {
	return &Consumer{
		reader:     r,
		handler:    handler,
		logger:     log,
		maxRetries: 3,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
		deadLetter: deadLetter,
		metrics:    &ConsumerMetrics{},
	}
}

// Start launches the consume loop. It returns immediately; use Close to stop.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("Kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}

		c.metrics.RecordsConsumed.Add(1)
		c.metrics.Lag.Store(m.HighWaterMark - m.Offset)

		env, err := DecodeEnvelope(m.Value)
		if err != nil {
			// Malformed messages are committed so the partition keeps
			// moving.
			c.metrics.RecordsFailed.Add(1)
			c.logger.Warn("Skipping undecodable message",
				logging.Int64("offset", m.Offset),
				logging.Err(err))
			c.commit(ctx, m)
			continue
		}

		if err := c.processEnvelope(ctx, env); err == nil {
			c.metrics.RecordsProcessed.Add(1)
		} else {
			c.metrics.RecordsFailed.Add(1)
		}
		c.commit(ctx, m)
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Error("CommitMessages failed", logging.Err(err))
	}
}

// processEnvelope runs the handler with retries. Exhausted envelopes go to
// the dead letter topic and the error is returned for accounting only.
func (c *Consumer) processEnvelope(ctx context.Context, env *RecordEnvelope) error {
	err := c.handler(ctx, env)
	if err == nil {
		return nil
	}

	backoff := c.backoff
	for i := 0; i < c.maxRetries; i++ {
		c.metrics.RecordsRetried.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err = c.handler(ctx, env); err == nil {
			return nil
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	c.logger.Error("Record processing failed after retries",
		logging.String("event_id", env.EventID),
		logging.String("key", recordKey(env.Record)),
		logging.Err(err))

	if c.deadLetter != nil {
		if dlErr := c.deadLetter.PublishRecord(ctx, env.Record); dlErr != nil {
			c.logger.Error("Failed to publish to dead letter topic", logging.Err(dlErr))
		} else {
			c.metrics.RecordsDeadLettered.Add(1)
		}
	}
	return err
}

// Metrics returns the live counter set.
func (c *Consumer) Metrics() *ConsumerMetrics {
	return c.metrics
}

// Close stops the consume loop and closes the reader. Safe to call more than
// once.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed",
		logging.Int64("consumed", c.metrics.RecordsConsumed.Load()))
	return err
}

func recordKey(rec *record.Record) string {
	if rec == nil {
		return ""
	}
	return rec.Key()
}
