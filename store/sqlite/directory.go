package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// ACTORS (access.Directory interface)
// =============================================================================

// PutActor upserts an actor and replaces its supervised sites.
func (s *Store) PutActor(ctx context.Context, a access.Actor) error {
	if !a.Role.Valid() {
		return errors.Errorf("actor %d: unknown role %q", a.ID, a.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO actors (id, name, role) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role
	`, a.ID, a.Name, string(a.Role)); err != nil {
		return errors.Wrapf(err, "save actor %d", a.ID)
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM actor_sites WHERE actor_id = ?`, a.ID); err != nil {
		return errors.Wrapf(err, "clear sites of actor %d", a.ID)
	}
	for _, site := range a.Sites {
		if _, err := sqlTx.ExecContext(ctx,
			`INSERT OR IGNORE INTO actor_sites (actor_id, site_id) VALUES (?, ?)`, a.ID, site); err != nil {
			return errors.Wrapf(err, "save site %d of actor %d", site, a.ID)
		}
	}
	return errors.Wrap(sqlTx.Commit(), "commit actor")
}

func (s *Store) Actor(ctx context.Context, id int64) (access.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a access.Actor
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT id, name, role FROM actors WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Actor{}, errors.Wrapf(access.ErrUnknownActor, "actor %d", id)
	}
	if err != nil {
		return access.Actor{}, errors.Wrapf(err, "find actor %d", id)
	}
	a.Role = access.Role(role)

	rows, err := s.db.QueryContext(ctx, `SELECT site_id FROM actor_sites WHERE actor_id = ? ORDER BY site_id`, id)
	if err != nil {
		return access.Actor{}, errors.Wrapf(err, "load sites of actor %d", id)
	}
	defer rows.Close()
	for rows.Next() {
		var site int64
		if err := rows.Scan(&site); err != nil {
			return access.Actor{}, errors.Wrap(err, "scan site")
		}
		a.Sites = append(a.Sites, site)
	}
	return a, rows.Err()
}

// =============================================================================
// LOCK RUNS (timesheet.LockRunStore interface)
// =============================================================================

func (s *Store) FindLockRun(ctx context.Context, year int, month time.Month) (*timesheet.LockRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := timesheet.LockRun{Year: year, Month: month}
	var lockdown worktime.Date
	var ranAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT lockdown_date, pending, ran_at FROM lock_runs WHERE year = ? AND month = ?`, year, int(month),
	).Scan(&lockdown, &run.Pending, &ranAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(timesheet.ErrLockRunNotFound, "%04d-%02d", year, int(month))
	}
	if err != nil {
		return nil, errors.Wrap(err, "find lock run")
	}
	run.LockdownDate = lockdown
	run.RanAt = parseTime(ranAt)
	return &run, nil
}

func (s *Store) SaveLockRun(ctx context.Context, run timesheet.LockRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lock_runs (year, month, lockdown_date, pending, ran_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(year, month) DO UPDATE SET
			lockdown_date = excluded.lockdown_date,
			pending = excluded.pending,
			ran_at = excluded.ran_at
	`, run.Year, int(run.Month), run.LockdownDate, run.Pending, formatTime(run.RanAt))
	return errors.Wrap(err, "save lock run")
}
