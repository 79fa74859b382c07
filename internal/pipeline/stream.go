package pipeline

import (
	"context"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

// Stream connects the Kafka record source to the extraction runner: each
// raw record is processed on the configured path and the augmented record is
// published to the output topic.
type Stream struct {
	runner   *Runner
	producer *kafka.Producer
	path     Path
	logger   logging.Logger
}

// NewStream builds a Stream. The producer may be nil when augmented records
// should not be republished.
func NewStream(runner *Runner, producer *kafka.Producer, path Path, log logging.Logger) (*Stream, error) {
	if runner == nil {
		return nil, errors.New(errors.ErrCodeValidation, "runner required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Stream{
		runner:   runner,
		producer: producer,
		path:     path,
		logger:   log.Named("stream"),
	}, nil
}

// Handle is the kafka.RecordHandler for the input topic.
func (s *Stream) Handle(ctx context.Context, env *kafka.RecordEnvelope) error {
	rec := env.Record
	// Canonicalize the tag before validation so records differing only in
	// tag spelling are processed, not dropped.
	s.runner.normalizeLang(rec)
	if err := rec.Validate(); err != nil {
		// Invalid records are logged and dropped; retrying cannot fix them.
		s.logger.Warn("Dropping invalid record",
			logging.String("event_id", env.EventID),
			logging.Err(err))
		return nil
	}

	if err := s.runner.ProcessRecord(ctx, rec, s.path); err != nil {
		return err
	}

	if s.producer != nil {
		return s.producer.PublishRecord(ctx, rec)
	}
	return nil
}
