package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// Sweeper deletes sessions not updated since before.
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time) (int64, error)
}

// SweepObserver is told how many sessions each run removed.
type SweepObserver interface {
	Swept(n int64)
}

// SessionSweeper periodically deletes sessions idle for longer than TTL.
type SessionSweeper struct {
	scheduler gocron.Scheduler
	store     Sweeper
	ttl       time.Duration
	observer  SweepObserver
	now       func() time.Time
}

// NewSessionSweeper registers a sweep job running every interval.  The
// scheduler is not started until Start.
func NewSessionSweeper(store Sweeper, ttl, interval time.Duration, observer SweepObserver) (*SessionSweeper, error) {
	if ttl <= 0 || interval <= 0 {
		return nil, fmt.Errorf("sweeper: ttl and interval must be positive")
	}
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &SessionSweeper{
		scheduler: scheduler,
		store:     store,
		ttl:       ttl,
		observer:  observer,
		now:       time.Now,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			s.RunOnce(ctx)
		}),
		gocron.WithName("session_sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to register sweep job: %w", err)
	}
	return s, nil
}

// Start begins running the sweep job.
func (s *SessionSweeper) Start() {
	s.scheduler.Start()
	logrus.WithField("ttl", s.ttl.String()).Info("session sweeper started")
}

// Stop waits for a running sweep and stops the scheduler.
func (s *SessionSweeper) Stop() error {
	return s.scheduler.Shutdown()
}

// RunOnce deletes expired sessions and returns how many were removed.
func (s *SessionSweeper) RunOnce(ctx context.Context) int64 {
	cutoff := s.now().UTC().Add(-s.ttl)
	n, err := s.store.Sweep(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Warn("session sweep failed")
		return 0
	}
	if s.observer != nil {
		s.observer.Swept(n)
	}
	if n > 0 {
		logrus.WithField("deleted", n).Info("expired sessions swept")
	}
	return n
}
