package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// All is the target name that syncs every configured provider and then
// post-processes.
const All = "all"

// Runner executes sync targets for the CLI, the scheduler and the
// serverless entry points.
type Runner struct {
	cfg      *config.Config
	registry *Registry
	tracker  *Tracker
	pipeline *Pipeline
	writer   *Writer
	keys     store.KeyReader
	logger   *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg *config.Config, registry *Registry, tracker *Tracker, pipeline *Pipeline, writer *Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		registry: registry,
		tracker:  tracker,
		pipeline: pipeline,
		writer:   writer,
		logger:   logger,
	}
}

// WithKeys hands k to every connector built by the runner.
func (r *Runner) WithKeys(k store.KeyReader) *Runner {
	r.keys = k
	return r
}

// Configured reports whether provider t can be synced.
func (r *Runner) Configured(t provider.Type) bool {
	return r.registry.Configured(t, r.cfg)
}

// SyncProvider builds the connector for t and runs it with tracking.
// An unconfigured provider returns ErrNotConfigured without recording a run.
func (r *Runner) SyncProvider(ctx context.Context, t provider.Type) (store.Counts, error) {
	c, err := r.registry.Build(ctx, t, Deps{
		Config: r.cfg,
		Writer: r.writer,
		Keys:   r.keys,
		Logger: r.logger.With(zap.String(logging.FieldProvider, t.String())),
	})
	if err != nil {
		return nil, err
	}
	return r.tracker.SyncWithTracking(ctx, c)
}

// PostProcess runs identity resolution and the grants rebuild.
func (r *Runner) PostProcess(ctx context.Context) (store.Counts, error) {
	return r.pipeline.Run(ctx)
}

// SyncAll syncs every registered provider in order, skipping unconfigured
// ones, then post-processes. The first failure stops the remaining steps.
// Counts are keyed "<provider>.<entity>".
func (r *Runner) SyncAll(ctx context.Context) (store.Counts, error) {
	results := store.Counts{}
	for _, t := range r.registry.Types() {
		counts, err := r.SyncProvider(ctx, t)
		if errors.Is(err, ErrNotConfigured) {
			r.logger.Warn("provider not configured, skipping", zap.String(logging.FieldProvider, t.String()))
			continue
		}
		if err != nil {
			return results, err
		}
		for entity, n := range counts {
			results[t.String()+"."+entity] += n
		}
	}

	r.logger.Info("running post-processing (identity resolution + grants backfill)")
	counts, err := r.PostProcess(ctx)
	if err != nil {
		return results, err
	}
	results.Merge(counts)
	return results, nil
}

// Run dispatches a target name: "all", "post-process" or a provider.
func (r *Runner) Run(ctx context.Context, target string) (store.Counts, error) {
	switch target {
	case All:
		return r.SyncAll(ctx)
	case provider.PostProcess:
		return r.PostProcess(ctx)
	}
	t, err := provider.Parse(target)
	if err != nil {
		return nil, err
	}
	return r.SyncProvider(ctx, t)
}
