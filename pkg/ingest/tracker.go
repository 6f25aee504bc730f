package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/metrics"
	"github.com/alxnderia/ingestion/pkg/store"
)

// MaxErrorMessageLength bounds ingestion_runs.error_message, in runes.
const MaxErrorMessageLength = 1000

// Tracker records connector invocations in the run ledger.
type Tracker struct {
	runs   store.RunStore
	tenant string
	logger *zap.Logger
}

// NewTracker creates a Tracker for one tenant.
func NewTracker(runs store.RunStore, tenant string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{runs: runs, tenant: tenant, logger: logger}
}

// SyncWithTracking runs c.Sync between a RUNNING and a terminal run row.
// A failing or panicking Sync is recorded as FAILED and its error returned.
func (t *Tracker) SyncWithTracking(ctx context.Context, c Connector) (store.Counts, error) {
	name := c.Provider().String()

	runID, err := t.runs.StartRun(ctx, store.RunStart{Tenant: t.tenant, Provider: name})
	if err != nil {
		return nil, err
	}
	log := t.logger.With(zap.String(logging.FieldProvider, name), zap.String(logging.FieldRunID, runID))
	log.Info("sync started")

	start := time.Now()
	counts, stack, syncErr := safeSync(ctx, c)
	elapsed := time.Since(start)

	// The run row is finalized even when ctx was cancelled mid-sync
	finishCtx := context.WithoutCancel(ctx)

	if syncErr != nil {
		result := store.RunResult{
			ID:           runID,
			Tenant:       t.tenant,
			Status:       store.RunStatusFailed,
			ErrorMessage: truncate(syncErr.Error(), MaxErrorMessageLength),
			ErrorDetail:  errorDetail(syncErr, stack),
		}
		if err := t.runs.FinishRun(finishCtx, result); err != nil {
			log.Error("failed to record run failure", zap.Error(err))
		}
		metrics.ObserveRun(name, store.RunStatusFailed.String(), elapsed, 0)
		log.Error("sync failed", zap.Error(syncErr), zap.Duration(logging.FieldDuration, elapsed))
		return nil, fmt.Errorf("%s sync failed: %w", name, syncErr)
	}

	total := counts.Total()
	err = t.runs.FinishRun(finishCtx, store.RunResult{
		ID:              runID,
		Tenant:          t.tenant,
		Status:          store.RunStatusSuccess,
		RecordsUpserted: total,
	})
	if err != nil {
		return counts, err
	}
	metrics.ObserveRun(name, store.RunStatusSuccess.String(), elapsed, total)
	log.Info("sync complete",
		zap.Int64(logging.FieldRecords, total),
		zap.Any("counts", counts),
		zap.Duration(logging.FieldDuration, elapsed),
	)
	return counts, nil
}

// safeSync calls Sync, turning a panic into an error.
func safeSync(ctx context.Context, c Connector) (counts store.Counts, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack = debug.Stack()
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	counts, err = c.Sync(ctx)
	if err != nil {
		stack = debug.Stack()
	}
	return counts, stack, err
}

func errorDetail(err error, stack []byte) map[string]any {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return map[string]any{
		"error":       err.Error(),
		"error_chain": chain,
		"stack":       string(stack),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
