package pipeline

import (
	"context"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
)

// RunFile reads a JSONL input file, runs the given path over it, and writes
// the augmented records to outputPath in input order.
func (r *Runner) RunFile(ctx context.Context, inputPath, outputPath string, path Path) (*RunStats, error) {
	items, err := ReadItemsFile(inputPath, r.cfg.SkipInvalid, r.logger)
	if err != nil {
		return nil, err
	}

	if r.cfg.ValidateSchema {
		validator, err := NewSchemaValidator()
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateItems(items); err != nil {
			return nil, err
		}
	}

	stats, err := r.Run(ctx, items, path)
	if err != nil {
		return nil, err
	}

	if err := WriteItemsFile(outputPath, items); err != nil {
		return nil, err
	}

	r.logger.Info("Wrote augmented records",
		logging.String("output", outputPath),
		logging.Int("records", len(items)),
	)
	return stats, nil
}
