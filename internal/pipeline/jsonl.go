// Package pipeline drives records through the extraction paths: it reads
// JSONL input, runs the rule-based or generative extractor over each record,
// and writes augmented records preserving input order and unknown fields.
package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// maxLineBytes bounds a single input line; model answers can run long.
const maxLineBytes = 16 * 1024 * 1024

// Item is one input line: the decoded record plus the raw field set, so
// fields this pipeline does not know about survive the round trip.
type Item struct {
	Line   int
	Record record.Record
	fields map[string]json.RawMessage
}

func decodeItem(line int, data []byte) (*Item, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Newf(errors.ErrCodeRecordMalformed, "line %d: invalid JSON: %v", line, err)
	}

	var rec record.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Newf(errors.ErrCodeRecordMalformed, "line %d: %v", line, err)
	}

	return &Item{Line: line, Record: rec, fields: fields}, nil
}

// setOutput pins an output field explicitly so empty lists still appear in
// the written line instead of being dropped by omitempty.
func (it *Item) setOutput(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if it.fields == nil {
		it.fields = make(map[string]json.RawMessage)
	}
	it.fields[name] = data
}

// encode merges the record's current state over the original fields and
// serializes without HTML escaping.
func (it *Item) encode() ([]byte, error) {
	recJSON, err := json.Marshal(&it.Record)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal record")
	}
	var recFields map[string]json.RawMessage
	if err := json.Unmarshal(recJSON, &recFields); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to remarshal record")
	}

	merged := make(map[string]json.RawMessage, len(it.fields)+len(recFields))
	for k, v := range it.fields {
		merged[k] = v
	}
	for k, v := range recFields {
		merged[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}
	// Encode appends a newline; the writer manages line separation itself.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ReadItems decodes a JSONL stream. Blank lines are skipped; a malformed
// line either aborts the read or is dropped with a warning, depending on
// skipInvalid.
func ReadItems(r io.Reader, skipInvalid bool, log logging.Logger) ([]*Item, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var items []*Item
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		item, err := decodeItem(line, data)
		if err != nil {
			if skipInvalid {
				log.Warn("Skipping malformed record", logging.Int("line", line), logging.Err(err))
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordSourceError, "failed to read input")
	}
	return items, nil
}

// WriteItems writes one object per line in input order.
func WriteItems(w io.Writer, items []*Item) error {
	bw := bufio.NewWriter(w)
	for _, item := range items {
		data, err := item.encode()
		if err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return errors.Wrap(err, errors.ErrCodeRecordSinkError, "failed to write record")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, errors.ErrCodeRecordSinkError, "failed to write record")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeRecordSinkError, "failed to flush output")
	}
	return nil
}

// ReadItemsFile reads a JSONL file from disk.
func ReadItemsFile(path string, skipInvalid bool, log logging.Logger) ([]*Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecordSourceError, "failed to open input file")
	}
	defer f.Close()
	return ReadItems(f, skipInvalid, log)
}

// WriteItemsFile writes a JSONL file to disk.
func WriteItemsFile(path string, items []*Item) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeRecordSinkError, "failed to create output file")
	}
	defer f.Close()
	return WriteItems(f, items)
}
