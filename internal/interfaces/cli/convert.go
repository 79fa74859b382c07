package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/types/record"
)

var (
	convertInput     string
	convertOutput    string
	convertKeepEmpty bool
	convertLang      string
)

// NewConvertCmd creates the source-conversion command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Flatten nested source problems into JSONL records",
		Long:  "Convert the nested source layout, a JSON array of problems with\nper-model answer lists, into one JSONL record per (problem, model, attempt).",
		RunE:  runConvert,
	}

	cmd.Flags().StringVarP(&convertInput, "input", "i", "", "nested source JSON file (required)")
	cmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output JSONL file (required)")
	cmd.Flags().BoolVar(&convertKeepEmpty, "keep-empty", false, "emit records for blank answers instead of dropping them")
	cmd.Flags().StringVar(&convertLang, "lang", "", "force a language tag (en, zh) instead of detecting per answer")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	var forceLang record.Language
	if convertLang != "" {
		forceLang = record.ParseLanguage(convertLang, "")
		if forceLang == "" {
			return errors.Newf(errors.ErrCodeValidation, "unknown language %q", convertLang)
		}
	}

	f, err := os.Open(convertInput)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeRecordSourceError, "failed to open source file")
	}
	defer f.Close()

	problems, err := pipeline.ReadSourceProblems(f)
	if err != nil {
		return err
	}

	items := pipeline.Convert(problems, pipeline.ConvertOptions{
		KeepEmpty: convertKeepEmpty,
		ForceLang: forceLang,
	})
	if err := pipeline.WriteItemsFile(convertOutput, items); err != nil {
		return err
	}

	cliCtx.Logger.Info("Converted source problems",
		logging.Int("problems", len(problems)),
		logging.Int("records", len(items)),
	)
	PrintSuccess(cmd, fmt.Sprintf("wrote %d records to %s", len(items), convertOutput))
	return nil
}
