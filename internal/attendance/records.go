package attendance

import "time"

// Status is the marked state of a student for one class on one day.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
)

// Valid reports whether s is a known marking status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Record is one row of the append-only marking log: one student, one subject,
// one calendar day. Records are never updated after insert.
type Record struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name,omitempty"`
	SubjectID      string    `json:"subject_id"`
	SubjectName    string    `json:"subject_name,omitempty"`
	FacultyID      string    `json:"faculty_id"`
	DepartmentID   string    `json:"department_id,omitempty"`
	DepartmentName string    `json:"department_name,omitempty"`
	Date           time.Time `json:"date"`
	Status         Status    `json:"status"`
}

// RosterEntry is one student's status inside a reconstructed session.
type RosterEntry struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Status      Status `json:"status"`
}

// ClassSession is a derived view: the records of one class event grouped
// back together. It is never persisted.
type ClassSession struct {
	Date        time.Time     `json:"date"`
	SubjectID   string        `json:"subject_id"`
	SubjectName string        `json:"subject_name,omitempty"`
	FacultyID   string        `json:"faculty_id"`
	Present     int           `json:"present"`
	Absent      int           `json:"absent"`
	Roster      []RosterEntry `json:"roster,omitempty"`
}

// DateOnly truncates t to its calendar day in t's location. All record dates
// are day-granular; there is no time-of-day component to compare.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
