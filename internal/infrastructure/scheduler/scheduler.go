// Package scheduler triggers background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/usecase"
)

// ErrJobRunning is returned by Trigger while the job is already running.
var ErrJobRunning = errors.New("job already running")

// ErrUnknownJob is returned by Trigger for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is a unit of background work run at a point in time.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (*usecase.JobReport, error)
}

// Observer receives run outcomes, typically for metrics.
type Observer interface {
	ObserveJobRun(job string, report *usecase.JobReport, err error)
	ObserveJobRetry(job string, attempt int, delay time.Duration)
}

// Entry binds a job to a cron expression. An empty Schedule registers the
// job for manual triggering only.
type Entry struct {
	Job      Job
	Schedule string
}

// Config for Scheduler.
type Config struct {
	Entries     []Entry
	Logger      zerolog.Logger
	Observer    Observer
	Location    *time.Location
	MaxAttempts int           // Attempts per scheduled run, including the first
	BaseDelay   time.Duration // Delay before the first retry; doubles per attempt
	MaxDelay    time.Duration // Upper bound on the retry delay
	Tick        time.Duration // How often schedules are checked
	Now         func() time.Time
}

type jobState struct {
	entry    Entry
	schedule cron.Schedule
	next     time.Time

	running bool
	attempt int
	retryAt time.Time
	backoff *backoff.ExponentialBackOff
}

// Scheduler runs registered jobs when their schedule comes due, one run per
// job at a time, retrying failed runs with exponential backoff.
type Scheduler struct {
	jobs     map[string]*jobState
	order    []string
	logger   zerolog.Logger
	observer Observer
	location *time.Location
	maxTries int
	tick     time.Duration
	now      func() time.Time

	mu sync.Mutex
	wg sync.WaitGroup
}

// New validates the schedules and creates a Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Minute
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Minute
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Scheduler{
		jobs:     make(map[string]*jobState, len(cfg.Entries)),
		logger:   cfg.Logger.With().Str("component", "scheduler").Logger(),
		observer: cfg.Observer,
		location: cfg.Location,
		maxTries: cfg.MaxAttempts,
		tick:     cfg.Tick,
		now:      cfg.Now,
	}

	now := s.now().In(s.location)
	for _, e := range cfg.Entries {
		name := e.Job.Name()
		if _, dup := s.jobs[name]; dup {
			return nil, fmt.Errorf("job %q registered twice", name)
		}

		st := &jobState{entry: e, backoff: newBackoff(cfg.BaseDelay, cfg.MaxDelay)}
		if e.Schedule != "" {
			sched, err := cron.ParseStandard(e.Schedule)
			if err != nil {
				return nil, fmt.Errorf("job %q: invalid schedule %q: %w", name, e.Schedule, err)
			}
			st.schedule = sched
			st.next = sched.Next(now)
		}

		s.jobs[name] = st
		s.order = append(s.order, name)
	}

	return s, nil
}

func newBackoff(base, maxDelay time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Start checks schedules every tick until ctx is cancelled, then waits for
// running jobs to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Strs("jobs", s.order).Dur("tick", s.tick).Msg("scheduler started")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler shutting down")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.dispatch(ctx, s.now())
		}
	}
}

// NextRun returns when the job is next eligible to run.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	if !st.retryAt.IsZero() {
		return st.retryAt, true
	}
	return st.next, !st.next.IsZero()
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.order...)
}

// dispatch starts every job that is due at now and not already running.
func (s *Scheduler) dispatch(ctx context.Context, now time.Time) {
	now = now.In(s.location)

	s.mu.Lock()
	var due []*jobState
	for _, name := range s.order {
		st := s.jobs[name]
		if st.running || !st.due(now) {
			continue
		}
		if st.schedule != nil && !now.Before(st.next) {
			st.next = st.schedule.Next(now)
			// A fresh slot starts a fresh retry budget.
			st.attempt = 0
			st.retryAt = time.Time{}
			st.backoff.Reset()
		}
		st.running = true
		st.attempt++
		due = append(due, st)
	}
	s.mu.Unlock()

	for _, st := range due {
		s.wg.Add(1)
		go func(st *jobState) {
			defer s.wg.Done()
			s.execute(ctx, st, now)
		}(st)
	}
}

func (st *jobState) due(now time.Time) bool {
	if !st.retryAt.IsZero() && !now.Before(st.retryAt) {
		return true
	}
	return st.schedule != nil && !now.Before(st.next)
}

// execute runs one attempt and schedules a retry when it fails.
func (s *Scheduler) execute(ctx context.Context, st *jobState, now time.Time) {
	name := st.entry.Job.Name()

	s.mu.Lock()
	attempt := st.attempt
	s.mu.Unlock()

	_, err := s.run(ctx, st.entry.Job, now, attempt)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.running = false

	if err == nil || ctx.Err() != nil {
		st.attempt = 0
		st.retryAt = time.Time{}
		st.backoff.Reset()
		return
	}

	if attempt >= s.maxTries {
		s.logger.Error().Err(err).Str("job", name).Int("attempts", attempt).
			Time("next_run", st.next).Msg("job failed, giving up until next schedule")
		st.attempt = 0
		st.retryAt = time.Time{}
		st.backoff.Reset()
		return
	}

	delay := st.backoff.NextBackOff()
	st.retryAt = s.now().In(s.location).Add(delay)
	if s.observer != nil {
		s.observer.ObserveJobRetry(name, attempt, delay)
	}
	s.logger.Warn().Err(err).Str("job", name).Int("attempt", attempt).
		Dur("retry_in", delay).Msg("job failed, retry scheduled")
}

// run executes the job once with a run ID attached to its logs.
func (s *Scheduler) run(ctx context.Context, job Job, now time.Time, attempt int) (*usecase.JobReport, error) {
	runID := uuid.NewString()
	logger := s.logger.With().Str("job", job.Name()).Str("run_id", runID).Int("attempt", attempt).Logger()

	logger.Info().Time("run_at", now).Msg("job started")

	report, err := job.Run(logger.WithContext(ctx), now)
	if s.observer != nil {
		s.observer.ObserveJobRun(job.Name(), report, err)
	}

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	if report != nil {
		event = event.Int("processed", report.Processed).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Dur("duration", report.Duration())
	}
	event.Msg("job finished")

	return report, err
}

// Trigger runs the named job immediately at now and returns its report. It
// does not retry and does not move the cron schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string, now time.Time) (*usecase.JobReport, error) {
	s.mu.Lock()
	st, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if st.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	st.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		st.running = false
		s.mu.Unlock()
	}()

	return s.run(ctx, st.entry.Job, now.In(s.location), 1)
}
