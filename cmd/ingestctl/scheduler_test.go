package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alxnderia/ingestion/pkg/bootstrap"
	"github.com/alxnderia/ingestion/pkg/scheduler"
)

func countingScheduler(t *testing.T, runs *atomic.Int32) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(zaptest.NewLogger(t))
	require.NoError(t, s.Add(scheduler.Job{
		ID:       "github",
		Interval: 5 * time.Millisecond,
		Run:      func(context.Context) error { runs.Add(1); return nil },
	}))
	return s
}

func TestSuperviseKeepsSchedulerWhenReloadFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	changes := make(chan struct{})
	attempts := make(chan struct{}, 1)
	reopen := func(context.Context) (*bootstrap.App, *scheduler.Scheduler, error) {
		attempts <- struct{}{}
		return nil, nil, errors.New("database unreachable")
	}

	sched := countingScheduler(t, &runs)
	done := make(chan error, 1)
	go func() {
		done <- supervise(ctx, &bootstrap.App{}, sched, changes, reopen, zaptest.NewLogger(t))
	}()

	changes <- struct{}{}
	<-attempts

	seen := runs.Load()
	require.Eventually(t, func() bool { return runs.Load() > seen+2 }, 2*time.Second, time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("supervise returned after a failed reload: %v", err)
	default:
	}

	cancel()
	require.NoError(t, <-done)
}

func TestSuperviseSwapsSchedulerOnReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var oldRuns, newRuns atomic.Int32
	changes := make(chan struct{})
	next := countingScheduler(t, &newRuns)
	reopen := func(context.Context) (*bootstrap.App, *scheduler.Scheduler, error) {
		return &bootstrap.App{}, next, nil
	}

	sched := countingScheduler(t, &oldRuns)
	done := make(chan error, 1)
	go func() {
		done <- supervise(ctx, &bootstrap.App{}, sched, changes, reopen, zaptest.NewLogger(t))
	}()

	require.Eventually(t, func() bool { return oldRuns.Load() > 0 }, 2*time.Second, time.Millisecond)
	changes <- struct{}{}
	require.Eventually(t, func() bool { return newRuns.Load() > 2 }, 2*time.Second, time.Millisecond)

	stopped := oldRuns.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, oldRuns.Load(), "replaced scheduler kept firing")

	cancel()
	require.NoError(t, <-done)
}

func TestReportJobErrorsCountsPerJob(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	errs := make(chan scheduler.JobError, 3)
	errs <- scheduler.JobError{JobID: "github", Err: errors.New("rate limited")}
	errs <- scheduler.JobError{JobID: "post_process", Err: errors.New("deadlock")}
	errs <- scheduler.JobError{JobID: "github", Err: errors.New("rate limited")}
	close(errs)

	reportJobErrors(errs, zap.New(core))

	entries := logs.FilterMessage("scheduled job failed").All()
	require.Len(t, entries, 3)
	assert.Equal(t, int64(1), entries[0].ContextMap()["failures"])
	assert.Equal(t, int64(1), entries[1].ContextMap()["failures"])
	assert.Equal(t, int64(2), entries[2].ContextMap()["failures"])
	assert.Equal(t, "github", entries[2].ContextMap()["job"])
}
