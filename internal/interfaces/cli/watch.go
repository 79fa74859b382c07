package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

var (
	watchInputDir  string
	watchOutputDir string
	watchPath      string
	watchCache     bool
	watchSave      bool
)

// NewWatchCmd creates the directory-watching command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and process dropped record files",
		Long:  "Process every .jsonl file dropped into the input directory through the\nselected extraction path, writing results to the output directory under\nthe same name. Runs until interrupted.",
		RunE:  runWatch,
	}

	cmd.Flags().StringVar(&watchInputDir, "input-dir", "", "directory to watch for .jsonl files (required)")
	cmd.Flags().StringVar(&watchOutputDir, "output-dir", "", "directory for augmented files (required)")
	cmd.Flags().StringVar(&watchPath, "path", string(pipeline.PathRule), "extraction path (rule, generative)")
	cmd.Flags().BoolVar(&watchCache, "cache", false, "cache per-answer results in Redis")
	cmd.Flags().BoolVar(&watchSave, "save", false, "persist augmented records to PostgreSQL")
	_ = cmd.MarkFlagRequired("input-dir")
	_ = cmd.MarkFlagRequired("output-dir")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	runner, path, cleanup, err := buildPathRunner(cmd, cliCtx, watchPath, watchCache, watchSave)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := pipeline.NewWatcher(runner, watchInputDir, watchOutputDir, path, cliCtx.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Close()

	<-ctx.Done()
	cliCtx.Logger.Info("Shutting down watcher")
	return nil
}

// buildPathRunner assembles a Runner for the named extraction path, wiring
// only the client that path needs.
func buildPathRunner(cmd *cobra.Command, cliCtx *CLIContext, pathName string, useCache, save bool) (*pipeline.Runner, pipeline.Path, func(), error) {
	opts, cleanup, err := runnerOptions(cmd.Context(), cliCtx, useCache, save)
	if err != nil {
		return nil, "", nil, err
	}

	cfg := cliCtx.Config.Pipeline

	switch pipeline.Path(pathName) {
	case pipeline.PathRule:
		annotator, err := buildAnnotator(cliCtx)
		if err != nil {
			cleanup()
			return nil, "", nil, err
		}
		filter, err := buildFilter(cliCtx, "")
		if err != nil {
			cleanup()
			return nil, "", nil, err
		}
		return pipeline.NewRunner(cfg, annotator, filter, nil, cliCtx.Logger, opts...), pipeline.PathRule, cleanup, nil
	case pipeline.PathGenerative:
		extractor, err := buildExtractor(cliCtx)
		if err != nil {
			cleanup()
			return nil, "", nil, err
		}
		return pipeline.NewRunner(cfg, nil, nil, extractor, cliCtx.Logger, opts...), pipeline.PathGenerative, cleanup, nil
	default:
		cleanup()
		return nil, "", nil, errors.Newf(errors.ErrCodeValidation, "unknown extraction path %q", pathName)
	}
}
