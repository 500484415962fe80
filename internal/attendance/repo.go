package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"campustrack/internal/store"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRecords appends records inside one transaction. Each insert is
// conditional on the (student, subject, day) unique index; duplicates are
// skipped silently. Returns how many rows were actually written.
func (r *Repository) InsertRecords(ctx context.Context, records []Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, store.Unavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (id, student_id, subject_id, faculty_id, marked_on, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (student_id, subject_id, marked_on) DO NOTHING
		`, rec.ID, rec.StudentID, rec.SubjectID, rec.FacultyID, rec.Date, rec.Status)
		if err != nil {
			return 0, store.Unavailable(err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, store.Unavailable(err)
	}
	return inserted, nil
}

// RecordsInRange returns all records with marked_on in [from, to], joined
// with student, subject and department names for reporting.
func (r *Repository) RecordsInRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ar.id, ar.student_id, st.name, ar.subject_id, su.name,
		       ar.faculty_id, st.department_id, d.name, ar.marked_on, ar.status
		FROM attendance_records ar
		JOIN students st ON st.id = ar.student_id
		JOIN subjects su ON su.id = ar.subject_id
		JOIN departments d ON d.id = st.department_id
		WHERE ar.marked_on >= $1 AND ar.marked_on <= $2
		ORDER BY ar.marked_on, ar.created_at
	`, from, to)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.SubjectID, &rec.SubjectName,
			&rec.FacultyID, &rec.DepartmentID, &rec.DepartmentName, &rec.Date, &rec.Status); err != nil {
			return nil, store.Unavailable(err)
		}
		res = append(res, rec)
	}
	return res, store.Unavailable(rows.Err())
}
