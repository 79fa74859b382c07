package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

func TestRecordEnvelope_RoundTrip(t *testing.T) {
	rec := &record.Record{
		ProblemID: "p000042",
		Model:     "qwen2-7b",
		Attempt:   3,
		Lang:      record.LangZH,
		Keywords:  []string{"哈希表"},
	}
	env := NewRecordEnvelope("record.raw", "keyterm", rec)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, envelopeSchemaVersion, env.SchemaVersion)
	assert.False(t, env.Timestamp.IsZero())

	data, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)
	assert.Equal(t, rec.Keywords, decoded.Record.Keywords)
	assert.Equal(t, record.LangZH, decoded.Record.Lang)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.Error(t, err, "empty value")

	_, err = DecodeEnvelope([]byte("{broken"))
	assert.Error(t, err, "malformed json")

	_, err = DecodeEnvelope([]byte(`{"event_id":"x"}`))
	assert.Error(t, err, "missing record")
}

func TestEnvelopeIDsAreUnique(t *testing.T) {
	a := NewRecordEnvelope("record.raw", "keyterm", &record.Record{})
	b := NewRecordEnvelope("record.raw", "keyterm", &record.Record{})
	assert.NotEqual(t, a.EventID, b.EventID)
}
