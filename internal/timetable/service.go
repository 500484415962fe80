package timetable

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence surface for the grid. Insert and MDC variants
// must be atomic on the store side: the conditional insert rides on the slot
// unique index, and the MDC variants wrap entry write plus faculty
// propagation in one transaction.
type Store interface {
	InsertEntry(ctx context.Context, e Entry) (bool, error)
	InsertEntryWithMDC(ctx context.Context, e Entry) (bool, error)
	GetEntry(ctx context.Context, id string) (*Entry, error)
	UpdateEntry(ctx context.Context, e Entry) error
	UpdateEntryWithMDC(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, id string) (bool, error)
	EntriesFor(ctx context.Context, departmentID, semesterID string) ([]Entry, error)
	SubjectInDepartment(ctx context.Context, subjectID, departmentID string) (bool, error)
	FacultyInDepartment(ctx context.Context, facultyID, departmentID string) (bool, error)
	FacultyExists(ctx context.Context, facultyID string) (bool, error)
	SemesterNumber(ctx context.Context, semesterID string) (int, error)
	MDCConfig(ctx context.Context, departmentID string, semesterNumber int) (*MDCConfig, error)
}

// ColorSource annotates grid entries with a stable presentation color.
type ColorSource interface {
	ColorOf(ctx context.Context, id string) string
}

// Service validates and applies grid mutations. It holds no locks of its
// own; slot exclusivity comes entirely from the store's unique index.
type Service struct {
	store  Store
	colors ColorSource
}

// NewService creates a grid manager. colors may be nil, in which case grid
// reads carry no color annotation.
func NewService(store Store, colors ColorSource) *Service {
	return &Service{store: store, colors: colors}
}

// AddEntry occupies an empty slot. Fails with ErrSlotOccupied when the slot
// already has an entry, ErrNotFound when subject or faculty do not belong to
// the department. With mdc set, the subject/faculty come from the MDC
// configuration and the chosen faculty is propagated to every sibling MDC
// slot in the same store transaction.
func (s *Service) AddEntry(ctx context.Context, slot Slot, subjectID, facultyID, room string, mdc bool) (*Entry, error) {
	if err := slot.validate(); err != nil {
		return nil, err
	}

	e := Entry{
		ID:        uuid.NewString(),
		Slot:      slot,
		SubjectID: subjectID,
		FacultyID: facultyID,
		Room:      room,
	}

	if mdc {
		cfg, err := s.configFor(ctx, slot)
		if err != nil {
			return nil, err
		}
		e.SubjectID = cfg.SubjectID
		if e.FacultyID == "" {
			e.FacultyID = cfg.FacultyID
		}
		e.MDCConfigID = cfg.ID
	}

	if err := s.checkReferences(ctx, e); err != nil {
		return nil, err
	}

	var inserted bool
	var err error
	if e.MDC() {
		inserted, err = s.store.InsertEntryWithMDC(ctx, e)
	} else {
		inserted, err = s.store.InsertEntry(ctx, e)
	}
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrSlotOccupied
	}
	return &e, nil
}

// UpdateEntry partially replaces fields on an occupied slot. The slot
// identity never changes. MDC-sourced entries propagate a faculty change to
// their configuration and sibling slots.
func (s *Service) UpdateEntry(ctx context.Context, entryID string, patch EntryPatch) (*Entry, error) {
	cur, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrNotFound
	}

	e := *cur
	if patch.SubjectID != nil {
		e.SubjectID = *patch.SubjectID
	}
	if patch.FacultyID != nil {
		e.FacultyID = *patch.FacultyID
	}
	if patch.Room != nil {
		e.Room = *patch.Room
	}

	if err := s.checkReferences(ctx, e); err != nil {
		return nil, err
	}

	if e.MDC() {
		err = s.store.UpdateEntryWithMDC(ctx, e)
	} else {
		err = s.store.UpdateEntry(ctx, e)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEntry empties a slot. ErrNotFound when the entry does not exist.
func (s *Service) DeleteEntry(ctx context.Context, entryID string) error {
	deleted, err := s.store.DeleteEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// ToggleMDC resolves the MDC prefill for a slot. Enabling with no backing
// configuration fails with ErrMDCNotConfigured and touches nothing; the
// caller's slot stays in its prior state. Disabling returns nil: clearing
// the flag is a client-side concern until the entry is saved.
func (s *Service) ToggleMDC(ctx context.Context, slot Slot, enabled bool) (*Prefill, error) {
	if !enabled {
		return nil, nil
	}
	if err := slot.validate(); err != nil {
		return nil, err
	}
	cfg, err := s.configFor(ctx, slot)
	if err != nil {
		return nil, err
	}
	return &Prefill{SubjectID: cfg.SubjectID, FacultyID: cfg.FacultyID, MDCConfigID: cfg.ID}, nil
}

// GetGrid returns the 6x5 weekly matrix for a department and semester. Each
// occupied cell is annotated with its subject's registry color so repeated
// renders stay visually stable.
func (s *Service) GetGrid(ctx context.Context, departmentID, semesterID string) (Grid, error) {
	if departmentID == "" || semesterID == "" {
		return nil, ErrNotFound
	}
	entries, err := s.store.EntriesFor(ctx, departmentID, semesterID)
	if err != nil {
		return nil, err
	}

	grid := NewGrid()
	for i := range entries {
		e := entries[i]
		if e.Day < 1 || e.Day > DaysPerWeek || e.Period < 1 || e.Period > PeriodsPerDay {
			continue
		}
		if s.colors != nil {
			e.Color = s.colors.ColorOf(ctx, e.SubjectID)
		}
		grid[e.Day-1][e.Period-1] = &e
	}
	return grid, nil
}

func (s *Service) configFor(ctx context.Context, slot Slot) (*MDCConfig, error) {
	semNumber, err := s.store.SemesterNumber(ctx, slot.SemesterID)
	if err != nil {
		return nil, err
	}
	if semNumber == 0 {
		return nil, ErrNotFound
	}
	cfg, err := s.store.MDCConfig(ctx, slot.DepartmentID, semNumber)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrMDCNotConfigured
	}
	return cfg, nil
}

func (s *Service) checkReferences(ctx context.Context, e Entry) error {
	if e.SubjectID == "" || e.FacultyID == "" {
		return ErrNotFound
	}
	ok, err := s.store.SubjectInDepartment(ctx, e.SubjectID, e.DepartmentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	// MDC faculty may sit in another department; the shared course keeps one
	// faculty across every department's copy of the period. The id must still
	// resolve to a real faculty member before it is written back into the
	// configuration and propagated to sibling slots.
	if e.MDC() {
		ok, err := s.store.FacultyExists(ctx, e.FacultyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	}
	ok, err = s.store.FacultyInDepartment(ctx, e.FacultyID, e.DepartmentID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
