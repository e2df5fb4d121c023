/*
scheduler.go - Automated payroll lockdown scheduler

PURPOSE:
  Periodically runs the lockdown check so that each month is announced
  exactly once after its lockdown Friday, with the number of entries that
  were still not validated.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Delegates to timesheet.Lockdown, which skips months already recorded
    in lock_runs, so restarts never re-announce a month

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewLockdownScheduler(handler.Lockdown, clock, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunLockdown endpoint (manual run)
  - timesheet/lockdown.go: Lockdown
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/timesheet"
)

// LockdownScheduler runs the lockdown check on a ticker.
type LockdownScheduler struct {
	Lockdown      *timesheet.Lockdown
	Clock         timesheet.Clock
	CheckInterval time.Duration
	Enabled       bool
	Log           *logrus.Entry

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// checkMu serializes ticker checks and RunNow.
	checkMu sync.Mutex
}

// NewLockdownScheduler creates a new scheduler.
func NewLockdownScheduler(lockdown *timesheet.Lockdown, clock timesheet.Clock, log *logrus.Entry) *LockdownScheduler {
	if clock == nil {
		clock = timesheet.SystemClock
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LockdownScheduler{
		Lockdown:      lockdown,
		Clock:         clock,
		CheckInterval: time.Hour,
		Enabled:       true,
		Log:           log.WithField("worker_name", "lockdown"),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *LockdownScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Log.WithField("interval", s.CheckInterval.String()).Info("scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *LockdownScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info("scheduler stopped")
}

// RunNow performs one check synchronously and returns the runs it created.
func (s *LockdownScheduler) RunNow(ctx context.Context) ([]timesheet.LockRun, error) {
	return s.check(ctx)
}

func (s *LockdownScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.check(context.Background())

	for {
		select {
		case <-ticker.C:
			s.check(context.Background())
		case <-stop:
			return
		}
	}
}

func (s *LockdownScheduler) check(ctx context.Context) ([]timesheet.LockRun, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	now := s.Clock()
	runs, err := s.Lockdown.Check(ctx, now)
	if err != nil {
		s.Log.WithError(err).Error("lockdown check failed")
		return nil, err
	}
	for _, run := range runs {
		s.Log.WithFields(logrus.Fields{
			"year":          run.Year,
			"month":         int(run.Month),
			"lockdown_date": run.LockdownDate.String(),
			"pending":       run.Pending,
		}).Info("month locked")
	}
	if len(runs) == 0 {
		s.Log.Debug("no month to lock")
	}
	return runs, nil
}
