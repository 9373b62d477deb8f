// Package scheduler runs the periodic batches of the worker process: the
// monthly invoice run, the notification scans and the inbox retention purge.
// Every run is taken under a distributed mutex so that several workers may
// tick at once while only one of them does the work.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// Mutex is the part of a distributed lock the scheduler needs.
type Mutex interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockProvider mints the mutex guarding one batch.
type LockProvider func(name string) Mutex

// Metrics records job runs.
type Metrics interface {
	RecordJobRun(job string, err error, duration time.Duration, now time.Time)
	RecordJobSkipped(job string)
}

// Job is one periodic batch.
type Job struct {
	Name     string
	Interval time.Duration

	// Key names the batch a run at now belongs to.  Runs with the same key
	// never overlap across workers.  An empty key means nothing is due.
	Key func(now time.Time) string

	Run func(ctx context.Context, now time.Time) error
}

func (j Job) validate() error {
	switch {
	case j.Name == "":
		return errors.InvalidParam("job name is required")
	case j.Interval <= 0:
		return errors.InvalidParam("job interval must be positive").WithDetail(j.Name)
	case j.Key == nil || j.Run == nil:
		return errors.InvalidParam("job needs Key and Run").WithDetail(j.Name)
	}
	return nil
}

// RunStatus is what happened to one tick of a job.
type RunStatus string

const (
	StatusRan     RunStatus = "ran"
	StatusFailed  RunStatus = "failed"
	StatusNotDue  RunStatus = "not_due"
	StatusSkipped RunStatus = "skipped"
)

// unlockTimeout bounds the release of a batch mutex after the run's context
// is gone.
const unlockTimeout = 5 * time.Second

// Scheduler ticks registered jobs until its context ends.
type Scheduler struct {
	locks   LockProvider
	metrics Metrics
	logger  logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	jobs    []Job
	byName  map[string]Job
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics attaches a job run recorder.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New returns a Scheduler.  A nil locks runs every due job unguarded, which
// is only sound with a single worker.
func New(locks LockProvider, logger logging.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Scheduler{
		locks:  locks,
		logger: logger.Named("scheduler"),
		now:    time.Now,
		byName: make(map[string]Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers j.  Jobs cannot be added once Start has been called.
func (s *Scheduler) Add(j Job) error {
	if err := j.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New(errors.ErrCodeConflict, "scheduler already started")
	}
	if _, dup := s.byName[j.Name]; dup {
		return errors.New(errors.ErrCodeConflict, "duplicate job").WithDetail(j.Name)
	}
	s.jobs = append(s.jobs, j)
	s.byName[j.Name] = j
	return nil
}

// Jobs lists the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}

// Start runs one tick of every job immediately and then one per interval.
// It blocks until ctx is done and returns nil on a clean stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeConflict, "scheduler already started")
	}
	s.started = true
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	s.logger.Info("scheduler started", logging.Int("jobs", len(jobs)))
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			s.loop(gctx, j)
			return nil
		})
	}
	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	s.tick(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, j)
		}
	}
}

// RunNow runs one tick of the named job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) (RunStatus, error) {
	s.mu.Lock()
	j, ok := s.byName[name]
	s.mu.Unlock()
	if !ok {
		return "", errors.New(errors.ErrCodeNotFound, "unknown job").WithDetail(name)
	}
	return s.tick(ctx, j)
}

func (s *Scheduler) tick(ctx context.Context, j Job) (RunStatus, error) {
	if ctx.Err() != nil {
		return StatusNotDue, ctx.Err()
	}
	now := s.now()
	key := j.Key(now)
	if key == "" {
		return StatusNotDue, nil
	}
	log := s.logger.With(logging.String("job", j.Name), logging.String("batch", key))

	if s.locks != nil {
		m := s.locks(fmt.Sprintf("%s:%s", j.Name, key))
		ok, err := m.TryLock(ctx)
		if err != nil {
			log.Warn("failed to take batch lock", logging.Err(err))
			s.record(j.Name, err, 0, now)
			return StatusFailed, err
		}
		if !ok {
			log.Info("batch held by another worker")
			if s.metrics != nil {
				s.metrics.RecordJobSkipped(j.Name)
			}
			return StatusSkipped, nil
		}
		defer func() {
			uctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()
			if err := m.Unlock(uctx); err != nil {
				log.Warn("failed to release batch lock", logging.Err(err))
			}
		}()
	}

	start := time.Now()
	err := j.Run(ctx, now)
	elapsed := time.Since(start)
	s.record(j.Name, err, elapsed, s.now())
	if err != nil {
		log.Error("job run failed", logging.Duration("duration", elapsed), logging.Err(err))
		return StatusFailed, err
	}
	log.Info("job run completed", logging.Duration("duration", elapsed))
	return StatusRan, nil
}

func (s *Scheduler) record(job string, err error, d time.Duration, now time.Time) {
	if s.metrics != nil {
		s.metrics.RecordJobRun(job, err, d, now)
	}
}

//Personal.AI order the ending
