package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/scheduler"
)

// reloadDebounce coalesces the burst of events an editor save produces
const reloadDebounce = 500 * time.Millisecond

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the periodic sync scheduler",
	Long: `Run every configured provider and post-processing on their intervals
until SIGINT or SIGTERM.

With --watch-config, changes to the config file restart the scheduler with
the new configuration. An invalid file is logged and the running
configuration is kept.

Example:
  ingestctl scheduler
  ingestctl scheduler --watch-config`,
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch-config")

		if err := runScheduler(cmd.Context(), watch); err != nil {
			fmt.Fprintf(os.Stderr, "Scheduler failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().Bool("watch-config", false, "restart the scheduler when the config file changes")
}

func runScheduler(ctx context.Context, watch bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		return err
	}
	logger := logging.Must(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	var changes <-chan struct{}
	if watch {
		watcher, err := watchFile(ctx, cfg.ConfigFilePath(), logger)
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()
		changes = debounce(ctx, watcher)
	}

	app, sched, err := openScheduler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reopen := func(ctx context.Context) (*bootstrap.App, *scheduler.Scheduler, error) {
		next, err := bootstrap.LoadConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("config reload failed: %w", err)
		}
		logger.Info("config changed, restarting scheduler", zap.String("path", next.ConfigFilePath()))
		return openScheduler(ctx, next, logger)
	}
	return supervise(ctx, app, sched, changes, reopen, logger)
}

// opener builds a scheduler that has not been started yet.
type opener func(ctx context.Context) (*bootstrap.App, *scheduler.Scheduler, error)

// supervise runs sched until ctx is done. On each change it opens a
// replacement first and swaps only when that succeeds, so a failed reload
// leaves the running scheduler in place.
func supervise(ctx context.Context, app *bootstrap.App, sched *scheduler.Scheduler, changes <-chan struct{}, reopen opener, logger *zap.Logger) error {
	if err := sched.Start(ctx); err != nil {
		_ = app.Close()
		return err
	}
	go reportJobErrors(sched.Errors(), logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down scheduler")
			sched.Stop()
			return app.Close()
		case <-changes:
		}

		nextApp, nextSched, err := reopen(ctx)
		if err != nil {
			logger.Error("keeping current scheduler", zap.Error(err))
			continue
		}

		sched.Stop()
		_ = app.Close()
		app, sched = nextApp, nextSched
		if err := sched.Start(ctx); err != nil {
			_ = app.Close()
			return err
		}
		go reportJobErrors(sched.Errors(), logger)
	}
}

// reportJobErrors logs each failure with the job's running failure count
// until errs is closed.
func reportJobErrors(errs <-chan scheduler.JobError, logger *zap.Logger) {
	failures := make(map[string]int)
	for ev := range errs {
		failures[ev.JobID]++
		logger.Warn("scheduled job failed",
			zap.String(logging.FieldJob, ev.JobID),
			zap.Time("at", ev.At),
			zap.Int("failures", failures[ev.JobID]),
			zap.Error(ev.Err),
		)
	}
}

// openScheduler wires an App and a scheduler holding one job per configured
// provider plus post-processing.
func openScheduler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*bootstrap.App, *scheduler.Scheduler, error) {
	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var opts []scheduler.Option
	locker, err := app.Locker(ctx)
	if err != nil {
		_ = app.Close()
		return nil, nil, err
	}
	if locker != nil {
		opts = append(opts, scheduler.WithLocker(locker))
	}

	sched := scheduler.New(logger, opts...)
	for _, job := range scheduler.Jobs(cfg, app.Runner, logger) {
		if err := sched.Add(job); err != nil {
			_ = app.Close()
			return nil, nil, err
		}
	}
	return app, sched, nil
}

// watchFile watches the directory holding path so that atomic replaces
// are seen. Events for other files are dropped by debounce.
func watchFile(ctx context.Context, path string, logger *zap.Logger) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	logger.Info("watching config file", zap.String("path", path))
	return &fileWatcher{Watcher: w, name: filepath.Clean(path), logger: logger}, nil
}

type fileWatcher struct {
	*fsnotify.Watcher
	name   string
	logger *zap.Logger
}

// debounce emits once per burst of writes to the watched file.
func debounce(ctx context.Context, w *fileWatcher) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.name {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					timer = time.After(reloadDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", zap.Error(err))
			case <-timer:
				timer = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
