package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/metrics"
)

// Skip reasons reported to metrics.
const (
	SkipRunning = "running"
	SkipMisfire = "misfire"
	SkipLocked  = "locked"
)

var (
	ErrDuplicateJob = errors.New("duplicate job id")
	ErrStarted      = errors.New("scheduler already started")
)

// Job is a periodic unit of work.
type Job struct {
	ID       string
	Interval time.Duration
	// Grace is how late a firing may start; zero disables the check
	Grace time.Duration
	Run   func(ctx context.Context) error
}

// Locker provides cross-process exclusivity for a job.
type Locker interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// JobError reports a failed job execution.
type JobError struct {
	JobID string
	At    time.Time
	Err   error
}

func (e JobError) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.JobID, e.Err)
}

func (e JobError) Unwrap() error {
	return e.Err
}

type entry struct {
	job     Job
	running sync.Mutex
}

// Scheduler owns a table of jobs.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*entry
	locker  Locker
	logger  *zap.Logger
	errs    chan JobError
	closed  sync.Once
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	now     func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker makes every firing acquire l before running.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// New creates an empty Scheduler.
func New(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		logger: logger.Named("scheduler"),
		errs:   make(chan JobError, 16),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job. Jobs must be added before Start.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.ID)
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: no run function", job.ID)
	}
	for _, e := range s.jobs {
		if e.job.ID == job.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
		}
	}
	s.jobs = append(s.jobs, &entry{job: job})
	return nil
}

// Errors delivers failed executions. Events are dropped when nobody reads
// and the buffer is full. The channel is closed by Stop.
func (s *Scheduler) Errors() <-chan JobError {
	return s.errs
}

// Start launches one loop per job. The first firing of each job is one
// interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}
	s.logger.Info("scheduler started", zap.Strings("jobs", s.idsLocked()))
	return nil
}

// Stop cancels running jobs, waits for every loop to return and closes
// Errors.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.closed.Do(func() { close(s.errs) })
}

func (s *Scheduler) idsLocked() []string {
	ids := make([]string, 0, len(s.jobs))
	for _, e := range s.jobs {
		ids = append(ids, e.job.ID)
	}
	return ids
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	interval := e.job.Interval
	next := s.now().Add(interval)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		scheduled := next
		now := s.now()
		next = scheduled.Add(interval)
		for !next.After(now) {
			next = next.Add(interval)
		}
		timer.Reset(next.Sub(now))

		s.fire(ctx, e, scheduled)
	}
}

// fire starts one execution of e unless it must be skipped.
func (s *Scheduler) fire(ctx context.Context, e *entry, scheduled time.Time) {
	log := s.logger.With(zap.String(logging.FieldJob, e.job.ID))

	if late := s.now().Sub(scheduled); e.job.Grace > 0 && late > e.job.Grace {
		log.Warn("missed run time, skipping", zap.Duration("late", late))
		metrics.JobSkipped(e.job.ID, SkipMisfire)
		return
	}
	if !e.running.TryLock() {
		log.Warn("previous run still in progress, skipping")
		metrics.JobSkipped(e.job.ID, SkipRunning)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer e.running.Unlock()
		s.execute(ctx, e, log)
	}()
}

func (s *Scheduler) execute(ctx context.Context, e *entry, log *zap.Logger) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, e.job.ID, e.job.Interval)
		if err != nil {
			s.fail(e.job.ID, err, log)
			return
		}
		if !ok {
			log.Info("job held by another process, skipping")
			metrics.JobSkipped(e.job.ID, SkipLocked)
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release job lock", zap.Error(err))
			}
		}()
	}

	start := s.now()
	err := e.job.Run(ctx)
	if err != nil && ctx.Err() == nil {
		s.fail(e.job.ID, err, log)
		return
	}
	log.Debug("job finished", zap.Duration(logging.FieldDuration, s.now().Sub(start)))
}

func (s *Scheduler) fail(id string, err error, log *zap.Logger) {
	log.Error("job failed", zap.Error(err))
	metrics.JobFailed(id)

	select {
	case s.errs <- JobError{JobID: id, At: s.now(), Err: err}:
	default:
		log.Warn("error channel full, dropping event")
	}
}
