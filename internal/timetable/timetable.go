// Package timetable owns the weekly day-by-period grid per (department,
// semester, academic year): slot uniqueness, entry mutations, and the MDC
// auto-fill override.
package timetable

import "errors"

// Grid dimensions: Monday..Saturday, five periods a day.
const (
	DaysPerWeek   = 6
	PeriodsPerDay = 5
)

var (
	ErrNotFound         = errors.New("not found")
	ErrSlotOccupied     = errors.New("slot already occupied")
	ErrMDCNotConfigured = errors.New("no mdc configuration for department and semester")
	ErrInvalidSlot      = errors.New("day or period out of range")
)

// Slot is one grid coordinate. Exactly one entry may occupy a slot; the
// store's unique index is the only enforcement point.
type Slot struct {
	DepartmentID   string `json:"department_id" binding:"required"`
	SemesterID     string `json:"semester_id" binding:"required"`
	AcademicYearID string `json:"academic_year_id" binding:"required"`
	Day            int    `json:"day" binding:"required"`
	Period         int    `json:"period" binding:"required"`
}

func (s Slot) validate() error {
	if s.DepartmentID == "" || s.SemesterID == "" || s.AcademicYearID == "" {
		return ErrNotFound
	}
	if s.Day < 1 || s.Day > DaysPerWeek || s.Period < 1 || s.Period > PeriodsPerDay {
		return ErrInvalidSlot
	}
	return nil
}

// Entry is a persisted slot assignment. MDCConfigID is set when the
// subject/faculty were sourced from an MDC configuration.
type Entry struct {
	ID string `json:"id"`
	Slot
	SubjectID   string `json:"subject_id"`
	FacultyID   string `json:"faculty_id"`
	Room        string `json:"room,omitempty"`
	MDCConfigID string `json:"mdc_config_id,omitempty"`
	Color       string `json:"color,omitempty"`
}

// MDC reports whether the entry is MDC-sourced.
func (e Entry) MDC() bool { return e.MDCConfigID != "" }

// MDCConfig is the shared course definition for a (department, semester
// number) pair. Its faculty assignment is mirrored onto every entry that
// references it.
type MDCConfig struct {
	ID             string `json:"id"`
	DepartmentID   string `json:"department_id"`
	SemesterNumber int    `json:"semester_number"`
	SubjectID      string `json:"subject_id"`
	FacultyID      string `json:"faculty_id"`
}

// Prefill is the subject/faculty suggestion returned when MDC is toggled on
// for a slot. Nothing is persisted until the entry is saved.
type Prefill struct {
	SubjectID   string `json:"subject_id"`
	FacultyID   string `json:"faculty_id"`
	MDCConfigID string `json:"mdc_config_id"`
}

// EntryPatch is a partial update for an occupied slot. Nil fields keep the
// current value.
type EntryPatch struct {
	SubjectID *string `json:"subject_id"`
	FacultyID *string `json:"faculty_id"`
	Room      *string `json:"room"`
}

// Grid is the 6x5 weekly matrix; nil cells are empty slots.
type Grid [][]*Entry

// NewGrid allocates an empty grid.
func NewGrid() Grid {
	g := make(Grid, DaysPerWeek)
	for i := range g {
		g[i] = make([]*Entry, PeriodsPerDay)
	}
	return g
}
