package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/config"
	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// PostProcessJobID is the job id of identity resolution plus grants rebuild.
const PostProcessJobID = "post_process"

// Syncer is the part of ingest.Runner the scheduled jobs drive.
type Syncer interface {
	Configured(t provider.Type) bool
	SyncProvider(ctx context.Context, t provider.Type) (store.Counts, error)
	PostProcess(ctx context.Context) (store.Counts, error)
}

// Jobs builds one job per configured provider, in registry order, and the
// post-process job.
func Jobs(cfg *config.Config, syncer Syncer, logger *zap.Logger) []Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := RetryPolicy{MaxRetries: cfg.Scheduler.MaxRetries, BaseDelay: cfg.Scheduler.RetryBaseDelay}

	var jobs []Job
	for _, t := range provider.TypeValues() {
		if !syncer.Configured(t) {
			continue
		}
		jobs = append(jobs, Job{
			ID:       t.String(),
			Interval: cfg.Interval(t),
			Grace:    cfg.Scheduler.MisfireGrace,
			Run:      providerRun(syncer, t, policy, logger),
		})
	}

	jobs = append(jobs, Job{
		ID:       PostProcessJobID,
		Interval: cfg.Scheduler.PostProcessInterval,
		Grace:    cfg.Scheduler.MisfireGrace,
		Run: func(ctx context.Context) error {
			counts, err := syncer.PostProcess(ctx)
			if err != nil {
				return err
			}
			logger.Info("post-processing complete", zap.String(logging.FieldJob, PostProcessJobID), zap.Any("counts", counts))
			return nil
		},
	})
	return jobs
}

// providerRun syncs t with retries. A provider that became unconfigured
// is not retried.
func providerRun(syncer Syncer, t provider.Type, policy RetryPolicy, logger *zap.Logger) func(context.Context) error {
	log := logger.With(zap.String(logging.FieldJob, t.String()))

	return func(ctx context.Context) error {
		op := func(ctx context.Context) error {
			_, err := syncer.SyncProvider(ctx, t)
			if errors.Is(err, ingest.ErrNotConfigured) {
				log.Warn("provider not configured, skipping")
				return nil
			}
			return err
		}
		notify := func(err error, attempt int, wait time.Duration) {
			log.Warn("sync failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", policy.MaxRetries),
				zap.Duration("wait", wait),
				zap.Error(err))
		}

		return Retry(ctx, policy, op, notify)
	}
}
