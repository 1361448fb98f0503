package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"wheelhouse/internal/config"
	"wheelhouse/internal/pipeline"
	"wheelhouse/internal/storage"
)

// ErrQueueFull is returned by Enqueue when the run backlog is at capacity.
var ErrQueueFull = errors.New("run queue is full")

// Worker executes queued runs one at a time, in submission order. Runs share
// the build work directory and the staging output directory, so at most one
// may be in flight.
type Worker struct {
	queue chan WorkerOptions
	log   *zap.Logger
	done  chan struct{}
}

// NewWorker creates a Worker with room for size queued runs. Sizes below 1
// fall back to 1.
func NewWorker(size int, log *zap.Logger) *Worker {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		queue: make(chan WorkerOptions, size),
		log:   log,
		done:  make(chan struct{}),
	}
}

// Start launches the drain loop. Queued runs execute under ctx; cancelling it
// stops the loop once the current run finishes. Start must be called at most
// once.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case opts := <-w.queue:
				Execute(ctx, opts)
			}
		}
	}()
}

// Wait blocks until the drain loop has exited after Start's context is
// cancelled.
func (w *Worker) Wait() {
	<-w.done
}

// Enqueue submits a run for execution. The run stays pending until the
// worker reaches it. Enqueue never blocks; a full queue is an error.
func (w *Worker) Enqueue(opts WorkerOptions) error {
	select {
	case w.queue <- opts:
		w.log.Info("run queued", zap.String("run_id", opts.RunID))
		return nil
	default:
		return fmt.Errorf("run %q: %w", opts.RunID, ErrQueueFull)
	}
}

// WorkerOptions configures a build worker invocation.
type WorkerOptions struct {
	RunID    string
	Store    Store
	Config   *config.Config
	Profile  config.Profile
	Logger   *zap.Logger
	Uploader storage.Uploader

	// LogDir receives one tool log per run, named after the run id.
	LogDir string
}

// Execute runs the pipeline for a stored run and transitions it through
// running → complete | failed.
//
// Execute is intended to be called in a separate goroutine; it owns the full
// lifecycle of the run from the moment it is called.
func Execute(ctx context.Context, opts WorkerOptions) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", opts.RunID))

	logPath, logFile, err := openRunLog(opts.LogDir, opts.RunID)
	if err != nil {
		log.Error("failed to open run log", zap.Error(err))
		_ = opts.Store.MarkFailed(opts.RunID, err)
		return
	}
	defer logFile.Close()

	if err := opts.Store.MarkRunning(opts.RunID, logPath); err != nil {
		// If we cannot even mark it running the store is broken; nothing
		// more to do.
		log.Error("failed to mark run running", zap.Error(err))
		return
	}
	log.Info("run started", zap.String("log", logPath))

	result, err := pipeline.Run(ctx, pipeline.Options{
		Config:     opts.Config,
		Profile:    opts.Profile,
		RunID:      opts.RunID,
		Logger:     log,
		Uploader:   opts.Uploader,
		ToolOutput: logFile,
	})
	if err != nil {
		log.Error("run failed", zap.Error(err))
		_ = opts.Store.MarkFailed(opts.RunID, err)
		return
	}

	log.Info("run complete",
		zap.Int("staged", result.Staged),
		zap.Int("uploaded", result.Uploaded))
	_ = opts.Store.MarkComplete(opts.RunID, result)
}

// openRunLog creates the per-run tool log, making the directory on first
// use.
func openRunLog(dir, runID string) (string, *os.File, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("run: failed to create log directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, runID+".log")
	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("run: failed to create log %q: %w", path, err)
	}
	return path, f, nil
}
