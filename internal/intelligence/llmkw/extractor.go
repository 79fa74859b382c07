package llmkw

import (
	"context"
	"strings"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

// Input is one answer text queued for generative extraction.
type Input struct {
	Answer string
	Lang   record.Language
}

// Output is the recovered keyword list for one input.  Raw holds the
// unparsed engine text for diagnostics.
type Output struct {
	Keywords []string
	Raw      string
}

// Extractor drives the generative extraction path: it builds prompts,
// submits them to the completion engine in bounded batches, and runs every
// raw completion through the recovery parser.
type Extractor struct {
	engine    CompletionEngine
	batchSize int
	logger    logging.Logger
}

// NewExtractor builds an Extractor.  batchSize bounds the number of prompts
// per engine call; values below 1 fall back to 32.
func NewExtractor(engine CompletionEngine, batchSize int, logger logging.Logger) (*Extractor, error) {
	if engine == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "extractor: engine is required")
	}
	if batchSize < 1 {
		batchSize = 32
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{
		engine:    engine,
		batchSize: batchSize,
		logger:    logger.Named("llmkw"),
	}, nil
}

// Extract runs one answer through the generative path.  Empty or
// whitespace-only answers resolve to an empty keyword list without touching
// the engine.
func (e *Extractor) Extract(ctx context.Context, answer string, lang record.Language) (Output, error) {
	outs, err := e.ExtractBatch(ctx, []Input{{Answer: answer, Lang: lang}})
	if err != nil {
		return Output{}, err
	}
	return outs[0], nil
}

// ExtractBatch processes inputs in engine-sized batches, preserving input
// order in the returned slice.  A failed engine call fails the whole batch;
// the caller decides whether to retry or skip.
func (e *Extractor) ExtractBatch(ctx context.Context, inputs []Input) ([]Output, error) {
	outputs := make([]Output, len(inputs))

	// Index the inputs that actually need a completion.
	pending := make([]int, 0, len(inputs))
	prompts := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Answer) == "" {
			outputs[i] = Output{Keywords: []string{}}
			continue
		}
		pending = append(pending, i)
		prompts = append(prompts, BuildPrompt(in.Answer, in.Lang))
	}

	for start := 0; start < len(pending); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		raws, err := e.engine.Complete(ctx, prompts[start:end])
		if err != nil {
			return nil, err
		}
		if len(raws) != end-start {
			return nil, errors.Newf(errors.ErrCodeInferenceFailed,
				"extractor: engine returned %d outputs for %d prompts", len(raws), end-start)
		}

		for j, raw := range raws {
			idx := pending[start+j]
			outputs[idx] = Output{
				Keywords: Recover(raw),
				Raw:      raw,
			}
		}
	}

	e.logger.Debug("generative extraction batch complete",
		logging.Int("inputs", len(inputs)),
		logging.Int("prompted", len(pending)),
	)
	return outputs, nil
}
