package pipeline

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

// recordSchema describes one input line. Extraction output fields are
// intentionally permitted so already-augmented files can be re-fed.
const recordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["problem_id", "model", "attempt", "answer"],
	"properties": {
		"problem_id": {"type": "string", "minLength": 1},
		"problem":    {"type": "string"},
		"model":      {"type": "string", "minLength": 1},
		"attempt":    {"type": "integer", "minimum": 0},
		"answer":     {"type": "string"},
		"lang":       {"type": "string"},
		"nouns":             {"type": "array", "items": {"type": "string"}},
		"adjectives":        {"type": "array", "items": {"type": "string"}},
		"nominalized_verbs": {"type": "array", "items": {"type": "string"}},
		"keywords":          {"type": "array", "items": {"type": "string"}},
		"keywords_raw":      {"type": "string"}
	}
}`

// SchemaValidator checks input lines against the record schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to compile record schema")
	}
	return &SchemaValidator{schema: schema}, nil
}

// ValidateBytes checks one raw JSON line.
func (v *SchemaValidator) ValidateBytes(data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeRecordSchema, "schema validation failed")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.Newf(errors.ErrCodeRecordSchema, "record does not match schema: %s", strings.Join(msgs, "; "))
}

// ValidateItems checks every item, reporting the first violation with its
// line number.
func (v *SchemaValidator) ValidateItems(items []*Item) error {
	for _, item := range items {
		data, err := item.encode()
		if err != nil {
			return err
		}
		if err := v.ValidateBytes(data); err != nil {
			return errors.Newf(errors.ErrCodeRecordSchema, "line %d: %v", item.Line, err)
		}
	}
	return nil
}
