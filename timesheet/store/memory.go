// Package store provides in-memory implementations of the timesheet and
// payroll collaborators, for tests and local development.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	nextID      int64
	entries     map[int64]*timesheet.Entry
	byKey       map[key]int64
	assignments map[int64]timesheet.Assignment
	variables   map[uuid.UUID]*payroll.Variable
	formulas    map[uuid.UUID]*payroll.Formula
	lockRuns    map[monthKey]timesheet.LockRun

	// SaveHook, when set, runs before every entry write and can veto it.
	SaveHook func(e *timesheet.Entry) error
}

type key struct {
	WorkerID int64
	SiteID   int64
	Date     worktime.Date
}

type monthKey struct {
	Year  int
	Month time.Month
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[int64]*timesheet.Entry),
		byKey:       make(map[key]int64),
		assignments: make(map[int64]timesheet.Assignment),
		variables:   make(map[uuid.UUID]*payroll.Variable),
		formulas:    make(map[uuid.UUID]*payroll.Formula),
		lockRuns:    make(map[monthKey]timesheet.LockRun),
	}
}

func keyOf(e *timesheet.Entry) key {
	return key{WorkerID: e.WorkerID, SiteID: e.SiteID, Date: e.Date}
}

// =============================================================================
// ENTRIES - timesheet.Gateway
// =============================================================================

func (m *Memory) FindByID(_ context.Context, id int64) (*timesheet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, &timesheet.NotFoundError{EntryID: id}
	}
	return e.Clone(), nil
}

func (m *Memory) FindByKey(_ context.Context, workerID, siteID int64, date worktime.Date) (*timesheet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKey[key{WorkerID: workerID, SiteID: siteID, Date: date}]
	if !ok {
		return nil, fmt.Errorf("%w: worker %d, site %d, %s", timesheet.ErrEntryNotFound, workerID, siteID, date)
	}
	return m.entries[id].Clone(), nil
}

// Save inserts when e.ID is zero and assigns the id.
func (m *Memory) Save(_ context.Context, e *timesheet.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLocked(e); err != nil {
		return err
	}
	m.saveLocked(e)
	return nil
}

// SaveBatch saves entries atomically.
func (m *Memory) SaveBatch(_ context.Context, entries []*timesheet.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check everything first (atomic check)
	seen := make(map[key]bool, len(entries))
	for _, e := range entries {
		if err := m.checkLocked(e); err != nil {
			return err
		}
		k := keyOf(e)
		if seen[k] {
			return &timesheet.DuplicateEntryError{WorkerID: e.WorkerID, SiteID: e.SiteID, Date: e.Date}
		}
		seen[k] = true
	}

	// Write all (atomic write)
	for _, e := range entries {
		m.saveLocked(e)
	}
	return nil
}

func (m *Memory) checkLocked(e *timesheet.Entry) error {
	if m.SaveHook != nil {
		if err := m.SaveHook(e); err != nil {
			return err
		}
	}
	if e.ID != 0 {
		if _, ok := m.entries[e.ID]; !ok {
			return &timesheet.NotFoundError{EntryID: e.ID}
		}
	}
	if id, taken := m.byKey[keyOf(e)]; taken && id != e.ID {
		return &timesheet.DuplicateEntryError{WorkerID: e.WorkerID, SiteID: e.SiteID, Date: e.Date}
	}
	return nil
}

func (m *Memory) saveLocked(e *timesheet.Entry) {
	if e.ID == 0 {
		m.nextID++
		e.ID = m.nextID
	} else if old, ok := m.entries[e.ID]; ok {
		delete(m.byKey, keyOf(old))
	}
	m.entries[e.ID] = e.Clone()
	m.byKey[keyOf(e)] = e.ID
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return &timesheet.NotFoundError{EntryID: id}
	}
	delete(m.byKey, keyOf(e))
	delete(m.entries, id)
	return nil
}

func (m *Memory) Search(_ context.Context, f timesheet.Filter) ([]*timesheet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*timesheet.Entry{}
	for _, e := range m.entries {
		if f.Matches(e) {
			result = append(result, e.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.WorkerID != b.WorkerID {
			return a.WorkerID < b.WorkerID
		}
		return a.SiteID < b.SiteID
	})
	return result, nil
}

// =============================================================================
// ASSIGNMENTS - timesheet.AssignmentSource
// =============================================================================

func (m *Memory) PutAssignment(a timesheet.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = a
}

func (m *Memory) Assignment(_ context.Context, id int64) (timesheet.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return timesheet.Assignment{}, fmt.Errorf("%w: %d", timesheet.ErrAssignmentNotFound, id)
	}
	return a, nil
}

// =============================================================================
// LOCK RUNS - timesheet.LockRunStore
// =============================================================================

func (m *Memory) FindLockRun(_ context.Context, year int, month time.Month) (*timesheet.LockRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.lockRuns[monthKey{Year: year, Month: month}]
	if !ok {
		return nil, fmt.Errorf("%w: %04d-%02d", timesheet.ErrLockRunNotFound, year, month)
	}
	return &run, nil
}

func (m *Memory) SaveLockRun(_ context.Context, run timesheet.LockRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockRuns[monthKey{Year: run.Year, Month: run.Month}] = run
	return nil
}

// =============================================================================
// PAY VARIABLES - payroll.VariableStore
// =============================================================================

func (m *Memory) SaveVariable(_ context.Context, v *payroll.Variable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.variables[v.ID] = &cp
	return nil
}

func (m *Memory) VariablesByEntry(_ context.Context, entryID int64) ([]*payroll.Variable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*payroll.Variable
	for _, v := range m.variables {
		if v.EntryID == entryID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortVariables(out)
	return out, nil
}

func (m *Memory) VariablesByEntries(_ context.Context, entryIDs []int64, from, to worktime.Date) ([]*payroll.Variable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[int64]bool, len(entryIDs))
	for _, id := range entryIDs {
		wanted[id] = true
	}
	var out []*payroll.Variable
	for _, v := range m.variables {
		if !wanted[v.EntryID] {
			continue
		}
		if (!from.IsZero() && v.Date.Before(from)) || (!to.IsZero() && v.Date.After(to)) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sortVariables(out)
	return out, nil
}

func (m *Memory) DeleteVariable(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.variables[id]; !ok {
		return fmt.Errorf("%w: %s", payroll.ErrVariableNotFound, id)
	}
	delete(m.variables, id)
	return nil
}

func sortVariables(vs []*payroll.Variable) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].Date.Equal(vs[j].Date) {
			return vs[i].Date.Before(vs[j].Date)
		}
		if vs[i].Type != vs[j].Type {
			return vs[i].Type < vs[j].Type
		}
		return vs[i].CreatedAt.Before(vs[j].CreatedAt)
	})
}

// =============================================================================
// FORMULAS - payroll.FormulaStore
// =============================================================================

func (m *Memory) SaveFormula(_ context.Context, f *payroll.Formula) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (m *Memory) FindFormula(_ context.Context, id uuid.UUID) (*payroll.Formula, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.formulas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payroll.ErrFormulaNotFound, id)
	}
	return cloneFormula(f), nil
}

func (m *Memory) ListFormulas(_ context.Context, activeOnly bool) ([]*payroll.Formula, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*payroll.Formula{}
	for _, f := range m.formulas {
		if activeOnly && !f.Active {
			continue
		}
		out = append(out, cloneFormula(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneFormula(f *payroll.Formula) *payroll.Formula {
	cp := *f
	cp.Parameters = make(map[string]float64, len(f.Parameters))
	for k, v := range f.Parameters {
		cp.Parameters[k] = v
	}
	return &cp
}
