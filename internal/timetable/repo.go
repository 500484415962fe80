package timetable

import (
	"context"
	"database/sql"
	"errors"

	"campustrack/internal/store"
)

// Repository persists the grid in Postgres. Slot exclusivity rides on the
// unique index over (department, semester, academic year, day, period): an
// insert is one conditional statement, never read-then-write.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const insertEntrySQL = `
	INSERT INTO timetable_entries
		(id, department_id, semester_id, academic_year_id, day_of_week, period,
		 subject_id, faculty_id, room, mdc_config_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
	ON CONFLICT (department_id, semester_id, academic_year_id, day_of_week, period) DO NOTHING
`

// InsertEntry occupies a slot; returns false when the slot already had an
// entry.
func (r *Repository) InsertEntry(ctx context.Context, e Entry) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertEntrySQL,
		e.ID, e.DepartmentID, e.SemesterID, e.AcademicYearID, e.Day, e.Period,
		e.SubjectID, e.FacultyID, e.Room, e.MDCConfigID)
	if err != nil {
		return false, store.Unavailable(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// InsertEntryWithMDC occupies a slot and writes the chosen faculty back into
// the MDC configuration, mirroring it onto every sibling entry referencing
// that configuration. One transaction: a crash cannot leave some slots
// updated and others stale.
func (r *Repository) InsertEntryWithMDC(ctx context.Context, e Entry) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, store.Unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertEntrySQL,
		e.ID, e.DepartmentID, e.SemesterID, e.AcademicYearID, e.Day, e.Period,
		e.SubjectID, e.FacultyID, e.Room, e.MDCConfigID)
	if err != nil {
		return false, store.Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if err := propagateMDCFaculty(ctx, tx, e.MDCConfigID, e.FacultyID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, store.Unavailable(err)
	}
	return true, nil
}

// GetEntry returns an entry by id, nil when absent.
func (r *Repository) GetEntry(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, department_id, semester_id, academic_year_id, day_of_week, period,
		       subject_id, faculty_id, room, COALESCE(mdc_config_id::text, '')
		FROM timetable_entries WHERE id = $1
	`, id)
	var e Entry
	if err := row.Scan(&e.ID, &e.DepartmentID, &e.SemesterID, &e.AcademicYearID, &e.Day, &e.Period,
		&e.SubjectID, &e.FacultyID, &e.Room, &e.MDCConfigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.Unavailable(err)
	}
	return &e, nil
}

// UpdateEntry overwrites the mutable fields of an occupied slot in place.
func (r *Repository) UpdateEntry(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE timetable_entries
		SET subject_id = $2, faculty_id = $3, room = $4, updated_at = NOW()
		WHERE id = $1
	`, e.ID, e.SubjectID, e.FacultyID, e.Room)
	return store.Unavailable(err)
}

// UpdateEntryWithMDC overwrites an MDC-sourced entry and propagates the
// faculty to the configuration and all sibling entries in one transaction.
func (r *Repository) UpdateEntryWithMDC(ctx context.Context, e Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE timetable_entries
		SET subject_id = $2, faculty_id = $3, room = $4, updated_at = NOW()
		WHERE id = $1
	`, e.ID, e.SubjectID, e.FacultyID, e.Room); err != nil {
		return store.Unavailable(err)
	}

	if err := propagateMDCFaculty(ctx, tx, e.MDCConfigID, e.FacultyID); err != nil {
		return err
	}
	return store.Unavailable(tx.Commit())
}

func propagateMDCFaculty(ctx context.Context, tx *sql.Tx, configID, facultyID string) error {
	if configID == "" || facultyID == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE mdc_configs SET faculty_id = $2 WHERE id = $1
	`, configID, facultyID); err != nil {
		return store.Unavailable(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE timetable_entries
		SET faculty_id = $2, updated_at = NOW()
		WHERE mdc_config_id = $1
	`, configID, facultyID); err != nil {
		return store.Unavailable(err)
	}
	return nil
}

// DeleteEntry empties a slot; returns false when the entry was already gone.
func (r *Repository) DeleteEntry(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id)
	if err != nil {
		return false, store.Unavailable(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// EntriesFor lists a department/semester grid ordered by day then period.
func (r *Repository) EntriesFor(ctx context.Context, departmentID, semesterID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, department_id, semester_id, academic_year_id, day_of_week, period,
		       subject_id, faculty_id, room, COALESCE(mdc_config_id::text, '')
		FROM timetable_entries
		WHERE department_id = $1 AND semester_id = $2
		ORDER BY day_of_week, period
	`, departmentID, semesterID)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DepartmentID, &e.SemesterID, &e.AcademicYearID, &e.Day, &e.Period,
			&e.SubjectID, &e.FacultyID, &e.Room, &e.MDCConfigID); err != nil {
			return nil, store.Unavailable(err)
		}
		res = append(res, e)
	}
	return res, store.Unavailable(rows.Err())
}

// SubjectInDepartment reports whether the subject exists in the department.
func (r *Repository) SubjectInDepartment(ctx context.Context, subjectID, departmentID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1 AND department_id = $2)
	`, subjectID, departmentID).Scan(&ok)
	return ok, store.Unavailable(err)
}

// FacultyInDepartment reports whether the faculty member exists in the
// department.
func (r *Repository) FacultyInDepartment(ctx context.Context, facultyID, departmentID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM faculty WHERE id = $1 AND department_id = $2)
	`, facultyID, departmentID).Scan(&ok)
	return ok, store.Unavailable(err)
}

// FacultyExists reports whether the faculty member exists in any department.
// Used for MDC entries, whose shared faculty may sit outside the grid's
// department.
func (r *Repository) FacultyExists(ctx context.Context, facultyID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM faculty WHERE id = $1)
	`, facultyID).Scan(&ok)
	return ok, store.Unavailable(err)
}

// SemesterNumber resolves a semester id to its 1-based number, 0 when the
// semester does not exist.
func (r *Repository) SemesterNumber(ctx context.Context, semesterID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT number FROM semesters WHERE id = $1`, semesterID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, store.Unavailable(err)
}

// MDCConfig loads the shared course definition for (department, semester
// number), nil when none is configured.
func (r *Repository) MDCConfig(ctx context.Context, departmentID string, semesterNumber int) (*MDCConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, department_id, semester_number, subject_id, COALESCE(faculty_id::text, '')
		FROM mdc_configs
		WHERE department_id = $1 AND semester_number = $2
	`, departmentID, semesterNumber)
	var cfg MDCConfig
	if err := row.Scan(&cfg.ID, &cfg.DepartmentID, &cfg.SemesterNumber, &cfg.SubjectID, &cfg.FacultyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.Unavailable(err)
	}
	return &cfg, nil
}

// EntryCount counts every configured entry across all grids. Used by the
// dashboard's "classes today" figure.
func (r *Repository) EntryCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timetable_entries`).Scan(&n)
	return n, store.Unavailable(err)
}
