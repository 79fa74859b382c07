package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyTerm-Intelligence/pkg/errors"
)

// settleDelay gives writers time to finish a file after the create event
// before we read it.
const settleDelay = 500 * time.Millisecond

// Watcher runs every .jsonl file dropped into the input directory through
// the configured path and writes the result to the output directory under
// the same name.
type Watcher struct {
	runner    *Runner
	inputDir  string
	outputDir string
	path      Path
	logger    logging.Logger

	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   bool
	mu        sync.Mutex
}

// NewWatcher builds a Watcher over the given directories.
func NewWatcher(runner *Runner, inputDir, outputDir string, path Path, log logging.Logger) (*Watcher, error) {
	if runner == nil {
		return nil, errors.New(errors.ErrCodeValidation, "runner required")
	}
	if inputDir == "" || outputDir == "" {
		return nil, errors.New(errors.ErrCodeValidation, "input and output directories required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Watcher{
		runner:    runner,
		inputDir:  inputDir,
		outputDir: outputDir,
		path:      path,
		logger:    log.Named("watcher"),
	}, nil
}

// Start begins watching. It returns immediately; use Close to stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New(errors.ErrCodeInternal, "watcher already started")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create filesystem watcher")
	}
	if err := fsWatcher.Add(w.inputDir); err != nil {
		fsWatcher.Close()
		return errors.Wrap(err, errors.ErrCodeRecordSourceError, "failed to watch input directory")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsWatcher = fsWatcher
	w.cancel = cancel
	w.started = true

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("Watching for record files",
		logging.String("input_dir", w.inputDir),
		logging.String("output_dir", w.outputDir),
		logging.String("path", string(w.path)),
	)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".jsonl") {
				continue
			}
			w.handleFile(ctx, event.Name)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", logging.Err(err))
		}
	}
}

func (w *Watcher) handleFile(ctx context.Context, inputPath string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	outputPath := filepath.Join(w.outputDir, filepath.Base(inputPath))
	stats, err := w.runner.RunFile(ctx, inputPath, outputPath, w.path)
	if err != nil {
		w.logger.Error("Failed to process record file",
			logging.String("file", inputPath),
			logging.Err(err))
		return
	}
	w.logger.Info("Processed record file",
		logging.String("file", inputPath),
		logging.String("run_id", stats.RunID),
		logging.Int("processed", stats.Processed),
	)
}

// Close stops the watcher and waits for in-flight processing.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return nil
	}
	w.started = false

	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
