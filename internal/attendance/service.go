package attendance

import (
	"context"
	"errors"
	"log"
	"time"

	"campustrack/internal/queue"
)

// for tests
var nowFunc = time.Now

// Store is the persistence surface the service needs.
type Store interface {
	InsertRecords(ctx context.Context, records []Record) (int, error)
	RecordsInRange(ctx context.Context, from, to time.Time) ([]Record, error)
}

// MarkEntry is one student's status in a marking submission.
type MarkEntry struct {
	StudentID string `json:"student_id" binding:"required"`
	Status    Status `json:"status" binding:"required"`
}

// Service records class markings and serves reconstructed recent sessions.
type Service struct {
	store      Store
	q          queue.Queue
	recentDays int
}

// NewService creates a service. q may be nil when no worker is running.
func NewService(store Store, q queue.Queue) *Service {
	return &Service{store: store, q: q, recentDays: 30}
}

// MarkClass appends one record per roster entry for (subject, day), marked by
// facultyID. Inserts are conditional on the (student, subject, day) unique
// index, so re-submitting the same marking is a no-op. Returns the number of
// rows actually inserted.
func (s *Service) MarkClass(ctx context.Context, facultyID, subjectID string, day time.Time, entries []MarkEntry) (int, error) {
	if facultyID == "" || subjectID == "" {
		return 0, errors.New("faculty and subject required")
	}
	if len(entries) == 0 {
		return 0, errors.New("at least one roster entry required")
	}
	if day.IsZero() {
		day = nowFunc()
	}
	day = DateOnly(day)

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.StudentID == "" {
			return 0, errors.New("student id required")
		}
		if !e.Status.Valid() {
			return 0, errors.New("status must be PRESENT or ABSENT")
		}
		records = append(records, Record{
			StudentID: e.StudentID,
			SubjectID: subjectID,
			FacultyID: facultyID,
			Date:      day,
			Status:    e.Status,
		})
	}

	inserted, err := s.store.InsertRecords(ctx, records)
	if err != nil {
		return 0, err
	}

	if s.q != nil && inserted > 0 {
		msg := queue.Message{Type: queue.TypeAttendanceMarked, Body: []byte(subjectID)}
		if err := s.q.Publish(ctx, msg); err != nil {
			log.Printf("queue publish failed: %v", err)
		}
	}
	return inserted, nil
}

// RecentSessions reconstructs sessions from the trailing window, newest
// first, truncated to limit.
func (s *Service) RecentSessions(ctx context.Context, limit int) ([]ClassSession, error) {
	if limit <= 0 {
		limit = 10
	}
	to := DateOnly(nowFunc())
	from := to.AddDate(0, 0, -s.recentDays)

	records, err := s.store.RecordsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sessions := BuildSessions(records)
	SortSessionsDesc(sessions)
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}
