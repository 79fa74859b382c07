package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
)

var (
	extractInput       string
	extractOutput      string
	extractStoplist    string
	extractSkipInvalid bool
	extractValidate    bool
	extractCache       bool
	extractSave        bool
)

// NewExtractCmd creates the rule-path extraction command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract terms with the dependency-rule filter",
		Long:  "Run every record in a JSONL file through the dependency annotator and\nthe per-language rule filter, writing augmented records in input order.",
		RunE:  runExtract,
	}

	cmd.Flags().StringVarP(&extractInput, "input", "i", "", "input JSONL file (required)")
	cmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output JSONL file (required)")
	cmd.Flags().StringVar(&extractStoplist, "stoplist", "", "newline-delimited stoplist file overriding the built-in list")
	cmd.Flags().BoolVar(&extractSkipInvalid, "skip-invalid", false, "drop malformed lines instead of aborting")
	cmd.Flags().BoolVar(&extractValidate, "validate", false, "check every line against the record schema before the run")
	cmd.Flags().BoolVar(&extractCache, "cache", false, "cache per-answer results in Redis")
	cmd.Flags().BoolVar(&extractSave, "save", false, "persist augmented records to PostgreSQL")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	annotator, err := buildAnnotator(cliCtx)
	if err != nil {
		return err
	}
	filter, err := buildFilter(cliCtx, extractStoplist)
	if err != nil {
		return err
	}

	opts, cleanup, err := runnerOptions(cmd.Context(), cliCtx, extractCache, extractSave)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cliCtx.Config.Pipeline
	cfg.SkipInvalid = cfg.SkipInvalid || extractSkipInvalid
	cfg.ValidateSchema = cfg.ValidateSchema || extractValidate

	runner := pipeline.NewRunner(cfg, annotator, filter, nil, cliCtx.Logger, opts...)
	stats, err := runner.RunFile(cmd.Context(), extractInput, extractOutput, pipeline.PathRule)
	if err != nil {
		return err
	}

	return PrintResult(cmd, stats)
}
