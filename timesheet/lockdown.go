package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/site-timesheets/worktime"
)

// ErrLockRunNotFound is returned by LockRunStore for months never announced.
var ErrLockRunNotFound = errors.New("lock run not found")

// LockRun records that a month's lockdown was announced.
type LockRun struct {
	Year         int
	Month        time.Month
	LockdownDate worktime.Date
	Pending      int // entries not yet validated when the month locked
	RanAt        time.Time
}

type LockRunStore interface {
	// FindLockRun returns ErrLockRunNotFound (wrapped) when absent.
	FindLockRun(ctx context.Context, year int, month time.Month) (*LockRun, error)
	SaveLockRun(ctx context.Context, run LockRun) error
}

// LockdownStatus describes one month as seen on a given day.
type LockdownStatus struct {
	Year         int
	Month        time.Month
	LockdownDate worktime.Date
	Locked       bool
	Pending      int
	Run          *LockRun
}

// Lockdown announces newly locked months exactly once.
type Lockdown struct {
	Gateway  Gateway
	Runs     LockRunStore
	Notifier Notifier
	Log      *logrus.Entry
}

// Check looks at the previous and the current month of today. For each
// month that is locked and has no LockRun, it counts the entries still not
// validated, saves a LockRun and sends a period_locked notification.
// It returns the runs created by this call.
func (l *Lockdown) Check(ctx context.Context, now time.Time) ([]LockRun, error) {
	today := worktime.DateOf(now)
	current := worktime.StartOfMonth(today.Year(), today.Month())

	var created []LockRun
	for _, first := range []worktime.Date{current.AddMonths(-1), current} {
		if !IsLocked(first, today) {
			continue
		}
		_, err := l.Runs.FindLockRun(ctx, first.Year(), first.Month())
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrLockRunNotFound) {
			return created, err
		}

		pending, err := l.pending(ctx, first.Year(), first.Month())
		if err != nil {
			return created, err
		}
		run := LockRun{
			Year:         first.Year(),
			Month:        first.Month(),
			LockdownDate: LockdownDate(first.Year(), first.Month()),
			Pending:      pending,
			RanAt:        now,
		}
		if err := l.Runs.SaveLockRun(ctx, run); err != nil {
			return created, err
		}
		created = append(created, run)

		l.logger().WithFields(logrus.Fields{
			"year":          run.Year,
			"month":         int(run.Month),
			"lockdown_date": run.LockdownDate.String(),
			"pending":       run.Pending,
		}).Info("payroll period locked")
		if l.Notifier != nil {
			l.Notifier.Notify(ctx, Notification{
				Kind:    NotifyPeriodLocked,
				Count:   pending,
				Message: fmt.Sprintf("payroll %04d-%02d locked on %s, %d entries not validated", run.Year, run.Month, run.LockdownDate, pending),
				Payload: map[string]any{"year": run.Year, "month": int(run.Month)},
			})
		}
	}
	return created, nil
}

// Status reports the lock state of a month as of now.
func (l *Lockdown) Status(ctx context.Context, year int, month time.Month, now time.Time) (LockdownStatus, error) {
	first := worktime.StartOfMonth(year, month)
	st := LockdownStatus{
		Year:         first.Year(),
		Month:        first.Month(),
		LockdownDate: LockdownDate(first.Year(), first.Month()),
		Locked:       IsLocked(first, worktime.DateOf(now)),
	}
	pending, err := l.pending(ctx, st.Year, st.Month)
	if err != nil {
		return st, err
	}
	st.Pending = pending

	run, err := l.Runs.FindLockRun(ctx, st.Year, st.Month)
	switch {
	case err == nil:
		st.Run = run
	case !errors.Is(err, ErrLockRunNotFound):
		return st, err
	}
	return st, nil
}

func (l *Lockdown) pending(ctx context.Context, year int, month time.Month) (int, error) {
	r := worktime.MonthOf(year, month)
	entries, err := l.Gateway.Search(ctx, Filter{
		From:     r.From,
		To:       r.To,
		Statuses: []Status{StatusDraft, StatusSubmitted, StatusRejected},
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (l *Lockdown) logger() *logrus.Entry {
	if l.Log != nil {
		return l.Log
	}
	return logrus.WithField("component", "lockdown")
}
