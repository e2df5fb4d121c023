package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/site-timesheets/access"
	"github.com/warp/site-timesheets/payroll"
	"github.com/warp/site-timesheets/store/sqlite"
	"github.com/warp/site-timesheets/timesheet"
	"github.com/warp/site-timesheets/worktime"
)

var at = time.Date(2026, 2, 2, 7, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newEntry(t *testing.T, worker, site int64, date string) *timesheet.Entry {
	t.Helper()
	e, err := timesheet.NewEntry(worker, site, worktime.MustParseDate(date), worker, at)
	require.NoError(t, err)
	return e
}

func TestEntries_SaveFindUpdate(t *testing.T) {
	// GIVEN: a signed entry with every optional field set
	store := newStore(t)
	ctx := context.Background()

	e := newEntry(t, 7, 3, "2026-02-02")
	n, o := worktime.MustNew(7, 30), worktime.MustNew(1, 15)
	require.NoError(t, e.SetDurations(&n, &o, at))
	require.NoError(t, e.SetNote("coffrage", at))
	require.NoError(t, e.Sign("J. Martin", at))
	assignment := int64(55)
	e.AssignmentID = &assignment

	// WHEN
	require.NoError(t, store.Save(ctx, e))

	// THEN: id assigned and every field round-trips
	require.NotZero(t, e.ID)
	got, err := store.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "07:30", got.Normal.String())
	assert.Equal(t, "01:15", got.Overtime.String())
	assert.Equal(t, "coffrage", got.Note)
	require.NotNil(t, got.Signature)
	assert.Equal(t, "J. Martin", *got.Signature)
	require.NotNil(t, got.SignedAt)
	assert.True(t, at.Equal(*got.SignedAt))
	assert.Equal(t, int64(55), *got.AssignmentID)
	assert.Nil(t, got.ValidatorID)
	assert.True(t, at.Equal(got.CreatedAt))

	// Update in place
	require.NoError(t, got.Submit(at))
	require.NoError(t, store.Save(ctx, got))
	again, err := store.FindByKey(ctx, 7, 3, worktime.MustParseDate("2026-02-02"))
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusSubmitted, again.Status)
}

func TestEntries_NotFoundAndDuplicate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.FindByID(ctx, 99)
	assert.True(t, errors.Is(err, timesheet.ErrEntryNotFound))
	_, err = store.FindByKey(ctx, 7, 3, worktime.MustParseDate("2026-02-02"))
	assert.True(t, errors.Is(err, timesheet.ErrEntryNotFound))
	assert.True(t, errors.Is(store.Delete(ctx, 99), timesheet.ErrEntryNotFound))

	require.NoError(t, store.Save(ctx, newEntry(t, 7, 3, "2026-02-02")))
	err = store.Save(ctx, newEntry(t, 7, 3, "2026-02-02"))
	var dup *timesheet.DuplicateEntryError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(7), dup.WorkerID)
}

func TestEntries_SaveBatchIsAtomic(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newEntry(t, 7, 3, "2026-02-04")))

	// GIVEN: a batch whose last entry collides with a stored one
	batch := []*timesheet.Entry{
		newEntry(t, 7, 3, "2026-02-02"),
		newEntry(t, 7, 3, "2026-02-03"),
		newEntry(t, 7, 3, "2026-02-04"),
	}

	// WHEN
	err := store.SaveBatch(ctx, batch)

	// THEN: nothing from the batch was written
	assert.True(t, errors.Is(err, timesheet.ErrDuplicateEntry))
	all, err := store.Search(ctx, timesheet.Filter{WorkerID: 7})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Zero(t, batch[0].ID)

	require.NoError(t, store.SaveBatch(ctx, batch[:2]))
	all, err = store.Search(ctx, timesheet.Filter{WorkerID: 7})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEntries_Search(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, e := range []*timesheet.Entry{
		newEntry(t, 8, 1, "2026-02-03"),
		newEntry(t, 7, 2, "2026-02-03"),
		newEntry(t, 7, 1, "2026-02-03"),
		newEntry(t, 7, 1, "2026-02-02"),
		newEntry(t, 7, 1, "2026-03-02"),
	} {
		require.NoError(t, store.Save(ctx, e))
	}

	feb, err := store.Search(ctx, timesheet.Filter{
		From: worktime.MustParseDate("2026-02-01"),
		To:   worktime.MustParseDate("2026-02-28"),
	})
	require.NoError(t, err)
	require.Len(t, feb, 4)
	assert.Equal(t, "2026-02-02", feb[0].Date.String())
	assert.Equal(t, []int64{7, 7, 8}, []int64{feb[1].WorkerID, feb[2].WorkerID, feb[3].WorkerID})
	assert.Equal(t, []int64{1, 2}, []int64{feb[1].SiteID, feb[2].SiteID})

	site2, err := store.Search(ctx, timesheet.Filter{SiteID: 2})
	require.NoError(t, err)
	assert.Len(t, site2, 1)

	validated, err := store.Search(ctx, timesheet.Filter{Statuses: []timesheet.Status{timesheet.StatusValidated, timesheet.StatusSubmitted}})
	require.NoError(t, err)
	assert.Empty(t, validated)
}

func TestActors_Directory(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutActor(ctx, access.Actor{ID: 20, Name: "Chef", Role: access.RoleSupervisor, Sites: []int64{2, 1}}))
	require.NoError(t, store.PutActor(ctx, access.Actor{ID: 20, Name: "Chef", Role: access.RoleSupervisor, Sites: []int64{1, 3}}))

	a, err := store.Actor(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, access.RoleSupervisor, a.Role)
	assert.Equal(t, []int64{1, 3}, a.Sites)

	_, err = store.Actor(ctx, 404)
	assert.True(t, errors.Is(err, access.ErrUnknownActor))

	assert.Error(t, store.PutActor(ctx, access.Actor{ID: 21, Role: "boss"}))
}

func TestAssignmentsAndLockRuns(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutAssignment(ctx, timesheet.Assignment{
		ID: 55, WorkerID: 7, SiteID: 3, Date: worktime.MustParseDate("2026-02-03"), Planned: worktime.MustNew(7, 30),
	}))
	a, err := store.Assignment(ctx, 55)
	require.NoError(t, err)
	assert.Equal(t, "07:30", a.Planned.String())
	_, err = store.Assignment(ctx, 56)
	assert.True(t, errors.Is(err, timesheet.ErrAssignmentNotFound))

	_, err = store.FindLockRun(ctx, 2026, time.January)
	assert.True(t, errors.Is(err, timesheet.ErrLockRunNotFound))
	run := timesheet.LockRun{Year: 2026, Month: time.January, LockdownDate: worktime.MustParseDate("2026-01-23"), Pending: 2, RanAt: at}
	require.NoError(t, store.SaveLockRun(ctx, run))
	got, err := store.FindLockRun(ctx, 2026, time.January)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-23", got.LockdownDate.String())
	assert.Equal(t, 2, got.Pending)
}

func TestVariables_CascadeAndRange(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	e := newEntry(t, 7, 3, "2026-02-02")
	require.NoError(t, store.Save(ctx, e))

	meal, err := payroll.NewVariable(e.ID, payroll.MealAllowance, decimal.RequireFromString("10.10"), e.Date, at)
	require.NoError(t, err)
	march, err := payroll.NewVariable(e.ID, payroll.TransportAllowance, decimal.RequireFromString("6.40"), worktime.MustParseDate("2026-03-01"), at)
	require.NoError(t, err)
	require.NoError(t, store.SaveVariable(ctx, meal))
	require.NoError(t, store.SaveVariable(ctx, march))

	orphan, err := payroll.NewVariable(999, payroll.MealAllowance, decimal.NewFromInt(1), e.Date, at)
	require.NoError(t, err)
	assert.True(t, errors.Is(store.SaveVariable(ctx, orphan), payroll.ErrInvalidVariable))

	feb, err := store.VariablesByEntries(ctx, []int64{e.ID}, worktime.MustParseDate("2026-02-01"), worktime.MustParseDate("2026-02-28"))
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "10.1", feb[0].Value.String())
	assert.Equal(t, meal.ID, feb[0].ID)

	require.NoError(t, store.DeleteVariable(ctx, march.ID))
	assert.True(t, errors.Is(store.DeleteVariable(ctx, march.ID), payroll.ErrVariableNotFound))

	// Deleting the entry removes its variables
	require.NoError(t, store.Delete(ctx, e.ID))
	left, err := store.VariablesByEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestFormulas_SaveListFind(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	meal, err := payroll.NewFormula("Panier", "indemnites", payroll.MealAllowance,
		"jours_travailles * montant_unitaire", map[string]float64{"montant_unitaire": 10.10}, 30, at)
	require.NoError(t, err)
	old, err := payroll.NewFormula("Ancien panier", "indemnites", payroll.MealAllowance, "jours_travailles * 9", nil, 30, at)
	require.NoError(t, err)
	old.Active = false
	require.NoError(t, store.SaveFormula(ctx, meal))
	require.NoError(t, store.SaveFormula(ctx, old))

	got, err := store.FindFormula(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.10, got.Parameters["montant_unitaire"])
	v, err := got.Evaluate(map[string]float64{"jours_travailles": 22})
	require.NoError(t, err)
	assert.Equal(t, "222.2", v.String())

	all, err := store.ListFormulas(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := store.ListFormulas(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Panier", active[0].Name)

	_, err = store.FindFormula(ctx, old.ID)
	require.NoError(t, err)
	missing := meal.ID
	missing[0] ^= 0xff
	_, err = store.FindFormula(ctx, missing)
	assert.True(t, errors.Is(err, payroll.ErrFormulaNotFound))
}

func TestService_OnSQLite(t *testing.T) {
	// GIVEN: the service wired entirely on the SQLite store
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutActor(ctx, access.Actor{ID: 7, Name: "Ouvrier", Role: access.RoleWorker}))
	require.NoError(t, store.PutActor(ctx, access.Actor{ID: 20, Name: "Chef", Role: access.RoleSupervisor, Sites: []int64{3}}))

	svc := timesheet.NewService(store, store, access.Policy{RestrictSupervisorsToSites: true})
	svc.Clock = func() time.Time { return time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC) }

	// WHEN: create, sign, submit, validate
	n := worktime.MustNew(8, 0)
	e, err := svc.Create(ctx, 7, timesheet.CreateInput{WorkerID: 7, SiteID: 3, Date: worktime.MustParseDate("2026-02-03"), Normal: &n})
	require.NoError(t, err)
	_, err = svc.Sign(ctx, 7, e.ID, "Ouvrier")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 7, e.ID)
	require.NoError(t, err)
	got, err := svc.Validate(ctx, 20, e.ID)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusValidated, got.Status)
	stored, err := store.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), *stored.ValidatorID)
}
