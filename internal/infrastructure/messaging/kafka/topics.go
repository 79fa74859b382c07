// Package kafka provides the streaming record source and the extracted-record
// sink. Raw records enter on the input topic, processed records leave on the
// output topic, and records that exhaust their retries land on the dead
// letter topic.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

const (
	TopicRecordsRaw        = "keyterm.records.raw"
	TopicRecordsExtracted  = "keyterm.records.extracted"
	TopicRecordsDeadLetter = "keyterm.records.deadletter"
)

const envelopeSchemaVersion = "v1"

// RecordEnvelope wraps a record on the wire with event identity and tracing
// fields.
type RecordEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Record        *record.Record    `json:"record"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewRecordEnvelope wraps a record for publishing.
func NewRecordEnvelope(eventType, source string, rec *record.Record) *RecordEnvelope {
	return &RecordEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: envelopeSchemaVersion,
		Record:        rec,
	}
}

// Encode serializes the envelope for the wire.
func (e *RecordEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal record envelope")
	}
	return data, nil
}

// DecodeEnvelope parses a wire message back into an envelope and validates
// that it carries a record.
func DecodeEnvelope(data []byte) (*RecordEnvelope, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env RecordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal record envelope")
	}
	if env.Record == nil {
		return nil, errors.New(errors.ErrCodeValidation, "envelope carries no record")
	}
	return &env, nil
}
