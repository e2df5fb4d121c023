package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// ENTRIES (timesheet.Gateway interface)
// =============================================================================

const entryColumns = `id, worker_id, site_id, entry_date, normal_minutes, overtime_minutes,
	status, note, signature, signed_at, validator_id, validated_at, rejection_reason,
	assignment_id, created_by, created_at, updated_at`

func (s *Store) FindByID(ctx context.Context, id int64) (*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &timesheet.NotFoundError{EntryID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find entry %d", id)
	}
	return e, nil
}

func (s *Store) FindByKey(ctx context.Context, workerID, siteID int64, date worktime.Date) (*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE worker_id = ? AND site_id = ? AND entry_date = ?`,
		workerID, siteID, date)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(timesheet.ErrEntryNotFound, "worker %d, site %d, %s", workerID, siteID, date)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find entry by key")
	}
	return e, nil
}

// Save inserts when e.ID is zero and assigns the id.
func (s *Store) Save(ctx context.Context, e *timesheet.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEntry(ctx, s.db, e)
}

// SaveBatch saves entries atomically.
func (s *Store) SaveBatch(ctx context.Context, entries []*timesheet.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	// Ids are assigned inside the transaction; restore them on failure.
	inserted := make([]*timesheet.Entry, 0, len(entries))
	for _, e := range entries {
		wasNew := e.ID == 0
		if err := s.saveEntry(ctx, sqlTx, e); err != nil {
			for _, ie := range inserted {
				ie.ID = 0
			}
			return err
		}
		if wasNew {
			inserted = append(inserted, e)
		}
	}
	if err := sqlTx.Commit(); err != nil {
		for _, ie := range inserted {
			ie.ID = 0
		}
		return errors.Wrap(err, "commit batch")
	}
	return nil
}

func (s *Store) saveEntry(ctx context.Context, db execer, e *timesheet.Entry) error {
	args := []any{
		e.WorkerID, e.SiteID, e.Date,
		e.Normal.Minutes(), e.Overtime.Minutes(),
		string(e.Status), e.Note,
		nullString(e.Signature), nullTime(e.SignedAt),
		nullInt(e.ValidatorID), nullTime(e.ValidatedAt), nullString(e.RejectionReason),
		nullInt(e.AssignmentID),
		e.CreatedBy, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	}

	if e.ID == 0 {
		res, err := db.ExecContext(ctx, `
			INSERT INTO entries
			(worker_id, site_id, entry_date, normal_minutes, overtime_minutes,
			 status, note, signature, signed_at, validator_id, validated_at, rejection_reason,
			 assignment_id, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, args...)
		if err != nil {
			return s.entryWriteError(e, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "read entry id")
		}
		e.ID = id
		return nil
	}

	res, err := db.ExecContext(ctx, `
		UPDATE entries SET
			worker_id = ?, site_id = ?, entry_date = ?, normal_minutes = ?, overtime_minutes = ?,
			status = ?, note = ?, signature = ?, signed_at = ?, validator_id = ?, validated_at = ?,
			rejection_reason = ?, assignment_id = ?, created_by = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, append(args, e.ID)...)
	if err != nil {
		return s.entryWriteError(e, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &timesheet.NotFoundError{EntryID: e.ID}
	}
	return nil
}

func (s *Store) entryWriteError(e *timesheet.Entry, err error) error {
	if isUniqueConstraintError(err) {
		return &timesheet.DuplicateEntryError{WorkerID: e.WorkerID, SiteID: e.SiteID, Date: e.Date}
	}
	return errors.Wrapf(err, "save entry for worker %d on %s", e.WorkerID, e.Date)
}

// Delete removes an entry and, by cascade, its pay variables.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete entry %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &timesheet.NotFoundError{EntryID: id}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, f timesheet.Filter) ([]*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if f.WorkerID != 0 {
		where = append(where, "worker_id = ?")
		args = append(args, f.WorkerID)
	}
	if f.SiteID != 0 {
		where = append(where, "site_id = ?")
		args = append(args, f.SiteID)
	}
	if !f.From.IsZero() {
		where = append(where, "entry_date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "entry_date <= ?")
		args = append(args, f.To)
	}
	if len(f.Statuses) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Statuses)), ", ")
		where = append(where, "status IN ("+marks+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}

	query := `SELECT ` + entryColumns + ` FROM entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY entry_date, worker_id, site_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "search entries")
	}
	defer rows.Close()

	result := []*timesheet.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan entry")
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanEntry(row scanner) (*timesheet.Entry, error) {
	var (
		e                         timesheet.Entry
		normal, overtime          int
		status                    string
		signature, rejection      sql.NullString
		signedAt, validatedAt     sql.NullString
		validatorID, assignmentID sql.NullInt64
		createdAt, updatedAt      string
	)
	err := row.Scan(
		&e.ID, &e.WorkerID, &e.SiteID, &e.Date, &normal, &overtime,
		&status, &e.Note, &signature, &signedAt, &validatorID, &validatedAt, &rejection,
		&assignmentID, &e.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Normal = worktime.FromMinutes(normal)
	e.Overtime = worktime.FromMinutes(overtime)
	e.Status = timesheet.Status(status)
	e.Signature = stringPtr(signature)
	e.SignedAt = timePtr(signedAt)
	e.ValidatorID = intPtr(validatorID)
	e.ValidatedAt = timePtr(validatedAt)
	e.RejectionReason = stringPtr(rejection)
	e.AssignmentID = intPtr(assignmentID)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// =============================================================================
// ASSIGNMENTS (timesheet.AssignmentSource interface)
// =============================================================================

// PutAssignment upserts a planned day of work. The scheduling module owns
// assignments; this is its write path into the local copy.
func (s *Store) PutAssignment(ctx context.Context, a timesheet.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, worker_id, site_id, work_date, planned_minutes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			worker_id = excluded.worker_id,
			site_id = excluded.site_id,
			work_date = excluded.work_date,
			planned_minutes = excluded.planned_minutes
	`, a.ID, a.WorkerID, a.SiteID, a.Date, a.Planned.Minutes())
	return errors.Wrapf(err, "save assignment %d", a.ID)
}

func (s *Store) Assignment(ctx context.Context, id int64) (timesheet.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a timesheet.Assignment
	var planned int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, worker_id, site_id, work_date, planned_minutes FROM assignments WHERE id = ?`, id,
	).Scan(&a.ID, &a.WorkerID, &a.SiteID, &a.Date, &planned)
	if errors.Is(err, sql.ErrNoRows) {
		return timesheet.Assignment{}, errors.Wrapf(timesheet.ErrAssignmentNotFound, "assignment %d", id)
	}
	if err != nil {
		return timesheet.Assignment{}, errors.Wrapf(err, "find assignment %d", id)
	}
	a.Planned = worktime.FromMinutes(planned)
	return a, nil
}
