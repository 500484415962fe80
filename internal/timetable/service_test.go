package timetable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	entries   map[string]Entry
	bySlot    map[Slot]string
	subjects  map[string]string // subject id -> department id
	faculty   map[string]string // faculty id -> department id
	semesters map[string]int    // semester id -> number
	configs   map[string]*MDCConfig
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:   map[string]Entry{},
		bySlot:    map[Slot]string{},
		subjects:  map[string]string{"math": "cse", "mdc-ethics": "cse"},
		faculty:   map[string]string{"f1": "cse", "f2": "cse", "ext": "ece"},
		semesters: map[string]int{"sem3": 3},
		configs:   map[string]*MDCConfig{},
	}
}

func (f *fakeStore) configKey(dept string, n int) string {
	return dept + "/" + string(rune('0'+n))
}

func (f *fakeStore) InsertEntry(_ context.Context, e Entry) (bool, error) {
	if _, taken := f.bySlot[e.Slot]; taken {
		return false, nil
	}
	f.entries[e.ID] = e
	f.bySlot[e.Slot] = e.ID
	return true, nil
}

func (f *fakeStore) InsertEntryWithMDC(ctx context.Context, e Entry) (bool, error) {
	ok, err := f.InsertEntry(ctx, e)
	if !ok || err != nil {
		return ok, err
	}
	f.propagate(e.MDCConfigID, e.FacultyID)
	return true, nil
}

func (f *fakeStore) GetEntry(_ context.Context, id string) (*Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) UpdateEntry(_ context.Context, e Entry) error {
	f.entries[e.ID] = e
	return nil
}

func (f *fakeStore) UpdateEntryWithMDC(_ context.Context, e Entry) error {
	f.entries[e.ID] = e
	f.propagate(e.MDCConfigID, e.FacultyID)
	return nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, id string) (bool, error) {
	e, ok := f.entries[id]
	if !ok {
		return false, nil
	}
	delete(f.entries, id)
	delete(f.bySlot, e.Slot)
	return true, nil
}

func (f *fakeStore) EntriesFor(_ context.Context, departmentID, semesterID string) ([]Entry, error) {
	var out []Entry
	for _, e := range f.entries {
		if e.DepartmentID == departmentID && e.SemesterID == semesterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) SubjectInDepartment(_ context.Context, subjectID, departmentID string) (bool, error) {
	return f.subjects[subjectID] == departmentID, nil
}

func (f *fakeStore) FacultyInDepartment(_ context.Context, facultyID, departmentID string) (bool, error) {
	return f.faculty[facultyID] == departmentID, nil
}

func (f *fakeStore) FacultyExists(_ context.Context, facultyID string) (bool, error) {
	_, ok := f.faculty[facultyID]
	return ok, nil
}

func (f *fakeStore) SemesterNumber(_ context.Context, semesterID string) (int, error) {
	return f.semesters[semesterID], nil
}

func (f *fakeStore) MDCConfig(_ context.Context, departmentID string, semesterNumber int) (*MDCConfig, error) {
	return f.configs[f.configKey(departmentID, semesterNumber)], nil
}

func (f *fakeStore) propagate(configID, facultyID string) {
	for _, cfg := range f.configs {
		if cfg.ID == configID {
			cfg.FacultyID = facultyID
		}
	}
	for id, e := range f.entries {
		if e.MDCConfigID == configID {
			e.FacultyID = facultyID
			f.entries[id] = e
		}
	}
}

type staticColors struct{}

func (staticColors) ColorOf(context.Context, string) string { return "#4F46E5" }

func slot(day, period int) Slot {
	return Slot{DepartmentID: "cse", SemesterID: "sem3", AcademicYearID: "ay26", Day: day, Period: period}
}

func TestAddEntryOccupiesSlot(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})

	entry, err := svc.AddEntry(context.Background(), slot(1, 1), "math", "f1", "A-101", false)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "math", entry.SubjectID)
	assert.False(t, entry.MDC())
}

func TestAddEntrySlotOccupied(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, slot(1, 1), "math", "f1", "", false)
	require.NoError(t, err)

	_, err = svc.AddEntry(ctx, slot(1, 1), "math", "f2", "", false)
	assert.ErrorIs(t, err, ErrSlotOccupied)
	assert.Len(t, fs.entries, 1)
}

func TestAddEntryValidation(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, slot(7, 1), "math", "f1", "", false)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = svc.AddEntry(ctx, slot(1, 6), "math", "f1", "", false)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = svc.AddEntry(ctx, slot(1, 1), "unknown", "f1", "", false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddEntry(ctx, slot(1, 1), "math", "ghost", "", false)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, fs.entries)
}

func TestAddEntryMDCNotConfigured(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})

	_, err := svc.AddEntry(context.Background(), slot(2, 3), "", "", "", true)
	assert.ErrorIs(t, err, ErrMDCNotConfigured)
	assert.Empty(t, fs.entries, "a failed toggle must leave the grid untouched")
}

func TestAddEntryMDCPrefillsAndPropagates(t *testing.T) {
	fs := newFakeStore()
	fs.configs[fs.configKey("cse", 3)] = &MDCConfig{
		ID: "cfg1", DepartmentID: "cse", SemesterNumber: 3, SubjectID: "mdc-ethics", FacultyID: "f1",
	}
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	first, err := svc.AddEntry(ctx, slot(2, 3), "", "", "", true)
	require.NoError(t, err)
	assert.Equal(t, "mdc-ethics", first.SubjectID)
	assert.Equal(t, "f1", first.FacultyID)
	assert.True(t, first.MDC())

	// choosing a different faculty on a second MDC slot rewrites the config
	// and every sibling slot
	second, err := svc.AddEntry(ctx, slot(3, 3), "", "f2", "", true)
	require.NoError(t, err)
	assert.Equal(t, "f2", second.FacultyID)

	assert.Equal(t, "f2", fs.configs[fs.configKey("cse", 3)].FacultyID)
	assert.Equal(t, "f2", fs.entries[first.ID].FacultyID, "sibling MDC slot follows the config")
}

func TestAddEntryMDCFacultyOutsideDepartment(t *testing.T) {
	fs := newFakeStore()
	fs.configs[fs.configKey("cse", 3)] = &MDCConfig{
		ID: "cfg1", DepartmentID: "cse", SemesterNumber: 3, SubjectID: "mdc-ethics", FacultyID: "f1",
	}
	svc := NewService(fs, staticColors{})

	// the shared faculty may belong to another department
	entry, err := svc.AddEntry(context.Background(), slot(2, 3), "", "ext", "", true)
	require.NoError(t, err)
	assert.Equal(t, "ext", entry.FacultyID)
	assert.Equal(t, "ext", fs.configs[fs.configKey("cse", 3)].FacultyID)
}

func TestAddEntryMDCUnknownFaculty(t *testing.T) {
	fs := newFakeStore()
	fs.configs[fs.configKey("cse", 3)] = &MDCConfig{
		ID: "cfg1", DepartmentID: "cse", SemesterNumber: 3, SubjectID: "mdc-ethics", FacultyID: "f1",
	}
	svc := NewService(fs, staticColors{})

	_, err := svc.AddEntry(context.Background(), slot(2, 3), "", "ghost", "", true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, fs.entries)
	assert.Equal(t, "f1", fs.configs[fs.configKey("cse", 3)].FacultyID,
		"a rejected faculty never reaches the configuration")
}

func TestUpdateEntryPartial(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	entry, err := svc.AddEntry(ctx, slot(1, 1), "math", "f1", "A-101", false)
	require.NoError(t, err)

	room := "B-204"
	updated, err := svc.UpdateEntry(ctx, entry.ID, EntryPatch{Room: &room})
	require.NoError(t, err)
	assert.Equal(t, "B-204", updated.Room)
	assert.Equal(t, "math", updated.SubjectID, "unpatched fields keep their values")
	assert.Equal(t, entry.Slot, updated.Slot, "slot identity never changes")
}

func TestUpdateEntryNotFound(t *testing.T) {
	svc := NewService(newFakeStore(), staticColors{})

	_, err := svc.UpdateEntry(context.Background(), "missing", EntryPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEntry(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	entry, err := svc.AddEntry(ctx, slot(1, 1), "math", "f1", "", false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(ctx, entry.ID))
	assert.ErrorIs(t, svc.DeleteEntry(ctx, entry.ID), ErrNotFound)
}

func TestToggleMDC(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	// disabling is always a no-op
	prefill, err := svc.ToggleMDC(ctx, slot(1, 1), false)
	require.NoError(t, err)
	assert.Nil(t, prefill)

	_, err = svc.ToggleMDC(ctx, slot(1, 1), true)
	assert.ErrorIs(t, err, ErrMDCNotConfigured)

	fs.configs[fs.configKey("cse", 3)] = &MDCConfig{
		ID: "cfg1", DepartmentID: "cse", SemesterNumber: 3, SubjectID: "mdc-ethics", FacultyID: "f1",
	}
	prefill, err = svc.ToggleMDC(ctx, slot(1, 1), true)
	require.NoError(t, err)
	assert.Equal(t, "mdc-ethics", prefill.SubjectID)
	assert.Equal(t, "f1", prefill.FacultyID)
	assert.Equal(t, "cfg1", prefill.MDCConfigID)
}

func TestGetGridRoundTrip(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, staticColors{})
	ctx := context.Background()

	entry, err := svc.AddEntry(ctx, slot(4, 2), "math", "f1", "", false)
	require.NoError(t, err)

	grid, err := svc.GetGrid(ctx, "cse", "sem3")
	require.NoError(t, err)
	require.Len(t, grid, DaysPerWeek)
	require.Len(t, grid[0], PeriodsPerDay)

	cell := grid[3][1]
	require.NotNil(t, cell)
	assert.Equal(t, entry.ID, cell.ID)
	assert.NotEmpty(t, cell.Color, "occupied cells carry a stable color")

	assert.Nil(t, grid[0][0])
}
