package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/intelligence/llmkw"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

var (
	keywordsInput       string
	keywordsOutput      string
	keywordsBatchSize   int
	keywordsKeepRaw     bool
	keywordsSkipInvalid bool
	keywordsCache       bool
	keywordsSave        bool
)

// NewKeywordsCmd creates the generative-path extraction command.
func NewKeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Extract keywords with the completion engine",
		Long:  "Prompt the completion engine for each record's answer and recover an\nordered keyword list from the raw generation, batching prompts per request.",
		RunE:  runKeywords,
	}

	cmd.Flags().StringVarP(&keywordsInput, "input", "i", "", "input JSONL file (required)")
	cmd.Flags().StringVarP(&keywordsOutput, "output", "o", "", "output JSONL file (required)")
	cmd.Flags().IntVar(&keywordsBatchSize, "batch-size", 0, "records per engine request (default from config)")
	cmd.Flags().BoolVar(&keywordsKeepRaw, "keep-raw", false, "keep the unparsed engine output on each record")
	cmd.Flags().BoolVar(&keywordsSkipInvalid, "skip-invalid", false, "drop malformed lines instead of aborting")
	cmd.Flags().BoolVar(&keywordsCache, "cache", false, "cache per-answer results in Redis")
	cmd.Flags().BoolVar(&keywordsSave, "save", false, "persist augmented records to PostgreSQL")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runKeywords(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	extractor, err := buildExtractor(cliCtx)
	if err != nil {
		return err
	}

	opts, cleanup, err := runnerOptions(cmd.Context(), cliCtx, keywordsCache, keywordsSave)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cliCtx.Config.Pipeline
	if keywordsBatchSize > 0 {
		cfg.BatchSize = keywordsBatchSize
	}
	cfg.KeepRaw = cfg.KeepRaw || keywordsKeepRaw
	cfg.SkipInvalid = cfg.SkipInvalid || keywordsSkipInvalid

	runner := pipeline.NewRunner(cfg, nil, nil, extractor, cliCtx.Logger, opts...)
	stats, err := runner.RunFile(cmd.Context(), keywordsInput, keywordsOutput, pipeline.PathGenerative)
	if err != nil {
		return err
	}

	return PrintResult(cmd, stats)
}

// NewRecoverCmd creates the raw-output recovery command: it reads raw model
// generations, one per line or as arguments, and prints the recovered
// keyword lists.
func NewRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover [raw-output ...]",
		Short: "Recover keyword lists from raw model output",
		Long:  "Apply the recovery cascade to raw generations: JSON arrays parse\nstrictly, everything else degrades to delimiter splitting. With no\narguments, lines are read from stdin.",
		RunE:  runRecover,
	}
}

func runRecover(cmd *cobra.Command, args []string) error {
	raws := args
	if len(raws) == 0 {
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				raws = append(raws, line)
			}
		}
		if err := sc.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeRecordSourceError, "failed to read stdin")
		}
	}

	results := make([][]string, len(raws))
	for i, raw := range raws {
		results[i] = llmkw.Recover(raw)
	}

	if len(results) == 1 {
		return PrintResult(cmd, results[0])
	}
	return PrintResult(cmd, results)
}
