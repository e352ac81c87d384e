// Package scheduler runs the bounded daily job sequence at most once
// per calendar day, surviving process restarts via a persisted
// last-run watermark.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitford/jobops/internal/config"
	"github.com/mwhitford/jobops/pkg/logging"
)

const (
	defaultTickInterval = time.Minute
	defaultJobTimeout   = 5 * time.Minute
	dayLayout           = "2006-01-02"
)

// StateStore persists the scheduler watermark across restarts.
type StateStore interface {
	// LastRunDate returns the ISO date of the last run start, or ""
	LastRunDate(ctx context.Context) (string, error)

	// SetLastRunDate records that a run started today
	SetLastRunDate(ctx context.Context, day string) error
}

// Job is one isolated step of the daily sequence.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler drives the daily sequence: StaleCheck, Digest, FeedPoll.
// It is the only initiating component in the core, and the only one
// that must never let an error escape; every job failure degrades to a
// log line and the next job still runs.
type Scheduler struct {
	state      StateStore
	runAt      config.TimeOfDay
	jobs       []Job
	tickEvery  time.Duration
	jobTimeout time.Duration
	clock      func() time.Time
	logger     *logging.Logger
}

// Option configures Scheduler
type Option func(*Scheduler)

// WithClock sets a custom clock
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithTickInterval overrides how often the run-now condition is
// evaluated. Resolution is deliberately coarse; what matters is the
// calendar day, not the exact second.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickEvery = d
		}
	}
}

// WithJobTimeout bounds each job in the sequence.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// New builds a Scheduler.
func New(state StateStore, runAt config.TimeOfDay, jobs []Job, logger *logging.Logger, opts ...Option) (*Scheduler, error) {
	if state == nil {
		return nil, fmt.Errorf("scheduler: state store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Scheduler{
		state:      state,
		runAt:      runAt,
		jobs:       jobs,
		tickEvery:  defaultTickInterval,
		jobTimeout: defaultJobTimeout,
		clock:      time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run ticks until ctx is cancelled. The first check happens
// immediately so a restart later in the day picks up a missed run.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "run_at", s.runAt.String(), "jobs", len(s.jobs))

	if _, err := s.RunIfDue(ctx); err != nil {
		s.logger.Error("scheduler tick failed", "err", err)
	}

	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunIfDue(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "err", err)
			}
		}
	}
}

// RunIfDue is one tick: it checks the run-now condition and, when met,
// executes today's job sequence. Returns whether a run started. The
// watermark is advanced before any job executes, so a crash mid-run
// cannot cause a second start on the same calendar day; a run that
// never began is retried on the next process start.
func (s *Scheduler) RunIfDue(ctx context.Context) (bool, error) {
	now := s.clock()
	today := now.Format(dayLayout)

	if !s.runAt.ReachedBy(now) {
		return false, nil
	}

	last, err := s.state.LastRunDate(ctx)
	if err != nil {
		return false, err
	}
	if last != "" && last >= today {
		return false, nil
	}

	if err := s.state.SetLastRunDate(ctx, today); err != nil {
		return false, err
	}

	runID := uuid.NewString()
	s.logger.Info("daily run starting", "run_id", runID, "date", today)

	for _, job := range s.jobs {
		s.runJob(ctx, runID, job)
	}

	s.logger.Info("daily run finished", "run_id", runID)
	return true, nil
}

// runJob isolates one job: its error is logged, never propagated, so
// a failing digest cannot block the feed poll behind it.
func (s *Scheduler) runJob(ctx context.Context, runID string, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	started := s.clock()
	if err := job.Run(jobCtx); err != nil {
		s.logger.Error("daily job failed", "run_id", runID, "job", job.Name, "err", err)
		return
	}
	s.logger.Info("daily job completed", "run_id", runID, "job", job.Name,
		"elapsed", s.clock().Sub(started).String())
}
