package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// Resolver links provider identities to canonical users.
type Resolver interface {
	Resolve(ctx context.Context) (store.Counts, error)
}

// Aggregator rebuilds the tenant's access grants.
type Aggregator interface {
	Rebuild(ctx context.Context) (store.Counts, error)
}

// Notifier announces a completed post-process.
type Notifier interface {
	PostProcessCompleted(ctx context.Context, tenant string, counts store.Counts) error
}

// Pipeline runs identity resolution then the grants rebuild.
type Pipeline struct {
	tenant     string
	resolver   Resolver
	aggregator Aggregator
	notifier   Notifier
	logger     *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(tenant string, resolver Resolver, aggregator Aggregator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{tenant: tenant, resolver: resolver, aggregator: aggregator, logger: logger}
}

// WithNotifier publishes a completion event after each successful run.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// Run resolves identities, rebuilds grants and returns the merged counts.
// A resolution failure skips the rebuild.
func (p *Pipeline) Run(ctx context.Context) (store.Counts, error) {
	log := p.logger.With(zap.String(logging.FieldJob, provider.PostProcess))
	start := time.Now()

	results := store.Counts{}

	resolved, err := p.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	results.Merge(resolved)

	rebuilt, err := p.aggregator.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	results.Merge(rebuilt)

	log.Info("post-processing complete",
		zap.Any("counts", results),
		zap.Duration(logging.FieldDuration, time.Since(start)),
	)

	if p.notifier != nil {
		if err := p.notifier.PostProcessCompleted(ctx, p.tenant, results); err != nil {
			log.Warn("failed to publish completion event", zap.Error(err))
		}
	}
	return results, nil
}
