package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func noop(context.Context) error { return nil }

func TestAddRejectsDuplicatesAndBadJobs(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	require.NoError(t, s.Add(Job{ID: "github", Interval: time.Minute, Run: noop}))
	assert.ErrorIs(t, s.Add(Job{ID: "github", Interval: time.Hour, Run: noop}), ErrDuplicateJob)
	assert.ErrorContains(t, s.Add(Job{ID: "gcp", Run: noop}), "interval must be positive")
	assert.ErrorContains(t, s.Add(Job{ID: "gcp", Interval: time.Minute}), "no run function")
	assert.Equal(t, []string{"github"}, s.idsLocked())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.ErrorIs(t, s.Add(Job{ID: "gcp", Interval: time.Minute, Run: noop}), ErrStarted)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStarted)
}

func TestJobsRunPeriodically(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	var a, b atomic.Int32
	require.NoError(t, s.Add(Job{ID: "a", Interval: 10 * time.Millisecond, Run: func(context.Context) error { a.Add(1); return nil }}))
	require.NoError(t, s.Add(Job{ID: "b", Interval: 15 * time.Millisecond, Run: func(context.Context) error { b.Add(1); return nil }}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return a.Load() >= 2 && b.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := a.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, a.Load(), "no firings after Stop")
}

func TestFireSkipsWhileRunning(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	release := make(chan struct{})
	var runs atomic.Int32
	e := &entry{job: Job{ID: "github", Interval: time.Minute, Run: func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}}}

	ctx := context.Background()
	s.fire(ctx, e, s.now())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	s.fire(ctx, e, s.now())
	close(release)
	s.wg.Wait()
	assert.Equal(t, int32(1), runs.Load())

	s.fire(ctx, e, s.now())
	s.wg.Wait()
	assert.Equal(t, int32(2), runs.Load())
}

func TestFireSkipsMisfire(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(zaptest.NewLogger(t))
	s.now = func() time.Time { return now }

	var runs atomic.Int32
	e := &entry{job: Job{ID: "github", Interval: time.Minute, Grace: 300 * time.Second, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}}

	s.fire(context.Background(), e, now.Add(-301*time.Second))
	s.wg.Wait()
	assert.Zero(t, runs.Load())

	s.fire(context.Background(), e, now.Add(-299*time.Second))
	s.wg.Wait()
	assert.Equal(t, int32(1), runs.Load())
}

func TestFailuresArePublished(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	boom := errors.New("rate limited")
	e := &entry{job: Job{ID: "github", Interval: time.Minute, Run: func(context.Context) error { return boom }}}

	s.fire(context.Background(), e, s.now())
	s.wg.Wait()

	select {
	case ev := <-s.Errors():
		assert.Equal(t, "github", ev.JobID)
		assert.ErrorIs(t, ev, boom)
		assert.Contains(t, ev.Error(), "job github failed")
	case <-time.After(time.Second):
		t.Fatal("no job error published")
	}
}

func TestStopClosesErrors(t *testing.T) {
	s := New(zaptest.NewLogger(t))
	e := &entry{job: Job{ID: "github", Interval: time.Minute, Run: func(context.Context) error {
		return errors.New("timeout")
	}}}

	s.fire(context.Background(), e, s.now())
	s.Stop()
	s.Stop()

	var got []string
	for ev := range s.Errors() {
		got = append(got, ev.JobID)
	}
	assert.Equal(t, []string{"github"}, got)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
	err      error
}

func (l *fakeLocker) Acquire(_ context.Context, job string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[job] {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = append(l.released, job)
		return nil
	}, true, nil
}

func TestLockerGuardsExecution(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"github": true}}
	s := New(zaptest.NewLogger(t), WithLocker(locker))

	var runs atomic.Int32
	run := func(context.Context) error { runs.Add(1); return nil }
	held := &entry{job: Job{ID: "github", Interval: time.Minute, Run: run}}
	free := &entry{job: Job{ID: "gcp_resource_manager", Interval: time.Minute, Run: run}}

	s.fire(context.Background(), held, s.now())
	s.fire(context.Background(), free, s.now())
	s.wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, []string{"gcp_resource_manager"}, locker.released)
}

func TestLockerErrorIsAFailure(t *testing.T) {
	s := New(zaptest.NewLogger(t), WithLocker(&fakeLocker{err: errors.New("redis down")}))
	e := &entry{job: Job{ID: "github", Interval: time.Minute, Run: noop}}

	s.fire(context.Background(), e, s.now())
	s.wg.Wait()

	ev := <-s.Errors()
	assert.ErrorContains(t, ev, "redis down")
}
