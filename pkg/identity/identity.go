package identity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/provider"
	"github.com/alxnderia/ingestion/pkg/store"
)

// NoreplySuffix marks GitHub's placeholder addresses.
const NoreplySuffix = "@users.noreply.github.com"

// QueueCountKey labels the queued identities in Resolve's result.
const QueueCountKey = "reconciliation_queue"

// Identity sources, in resolution order.
var (
	GoogleWorkspace = store.IdentitySource{
		LinkType:    provider.TypeGoogleWorkspace.LinkType(),
		Table:       "google_workspace_users",
		IDColumn:    "google_id",
		EmailColumn: "primary_email",
		CountKey:    "google_workspace_links",
	}
	AwsIdentityCenter = store.IdentitySource{
		LinkType:    provider.TypeAwsIdentityCenter.LinkType(),
		Table:       "aws_identity_center_users",
		IDColumn:    "user_id",
		EmailColumn: "email",
		CountKey:    "aws_identity_center_links",
	}
	Github = store.IdentitySource{
		LinkType:         provider.TypeGithub.LinkType(),
		Table:            "github_users",
		IDColumn:         "node_id",
		EmailColumn:      "email",
		UnreliableSuffix: NoreplySuffix,
		CountKey:         "github_links",
	}
)

// Sources returns every identity source in resolution order.
func Sources() []store.IdentitySource {
	return []store.IdentitySource{GoogleWorkspace, AwsIdentityCenter, Github}
}

// Resolver runs email-exact linking and noreply queuing for one tenant.
type Resolver struct {
	store   store.IdentityStore
	tenant  string
	sources []store.IdentitySource
	logger  *zap.Logger
}

// NewResolver creates a Resolver over every identity source.
func NewResolver(s store.IdentityStore, tenant string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: s, tenant: tenant, sources: Sources(), logger: logger}
}

// Resolve links each source in order, then queues unreliable identities.
// The first failing step aborts the rest.
func (r *Resolver) Resolve(ctx context.Context) (store.Counts, error) {
	start := time.Now()
	results := store.Counts{}

	for _, src := range r.sources {
		n, err := r.store.LinkExactEmail(ctx, r.tenant, src)
		if err != nil {
			return nil, err
		}
		results[src.CountKey] = n
		r.logger.Info("identity links resolved",
			zap.String(logging.FieldProvider, src.LinkType),
			zap.Int64(logging.FieldRecords, n),
		)
	}

	var queued int64
	for _, src := range r.sources {
		n, err := r.store.QueueUnreliable(ctx, r.tenant, src)
		if err != nil {
			return nil, err
		}
		queued += n
	}
	results[QueueCountKey] = queued
	if queued > 0 {
		r.logger.Info("identities queued for review", zap.Int64(logging.FieldRecords, queued))
	}

	r.logger.Info("identity resolution complete",
		zap.Any("counts", results),
		zap.Duration(logging.FieldDuration, time.Since(start)),
	)
	return results, nil
}
