// Package analytics computes attendance aggregates on demand from the
// persisted record log. All queries are read-only and all-or-nothing: a
// failed fetch surfaces as an error, while an empty window resolves to
// zeroes, never an error.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"campustrack/internal/attendance"
)

// ErrInvalidRange flags a malformed query window (negative day count or
// week count).
var ErrInvalidRange = errors.New("invalid date range")

// atRiskThreshold is the attendance ratio below which a student counts as
// at-risk. Strictly less-than: exactly 75% is not at-risk.
const atRiskThreshold = 0.75

// for tests
var nowFunc = time.Now

// Source is the data the aggregator reads. It never writes.
type Source interface {
	RecordsInRange(ctx context.Context, from, to time.Time) ([]attendance.Record, error)
	TimetableEntryCount(ctx context.Context) (int, error)
}

// Overview is the dashboard snapshot for one rolling window.
type Overview struct {
	OverallPct             int       `json:"overall_pct"`
	TrendDelta             float64   `json:"trend_delta"`
	ClassesToday           int       `json:"classes_today"`
	AtRiskCount            int       `json:"at_risk_count"`
	PerfectAttendanceCount int       `json:"perfect_attendance_count"`
	WindowEnd              time.Time `json:"window_end"`
}

// DepartmentStat is one department's attendance over a window. Departments
// with no records in the window are not reported at all.
type DepartmentStat struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Present        int    `json:"present"`
	Total          int    `json:"total"`
	Pct            int    `json:"pct"`
}

// WeekBucket is one 7-day bucket of the weekly trend. Empty buckets report
// 0%, they are never dropped.
type WeekBucket struct {
	Label   string `json:"label"`
	Present int    `json:"present"`
	Total   int    `json:"total"`
	Pct     int    `json:"pct"`
}

// LowAttendanceStudent is one ranked at-risk student with the subject they
// attend most.
type LowAttendanceStudent struct {
	StudentID        string `json:"student_id"`
	StudentName      string `json:"student_name"`
	Present          int    `json:"present"`
	Total            int    `json:"total"`
	Pct              int    `json:"pct"`
	ModalSubjectID   string `json:"modal_subject_id"`
	ModalSubjectName string `json:"modal_subject_name"`
}

// Service answers aggregate queries over the record log.
type Service struct {
	src        Source
	windowDays int
}

// NewService creates the aggregator. windowDays defaults to 30.
func NewService(src Source, windowDays int) *Service {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Service{src: src, windowDays: windowDays}
}

// OverallStats computes the dashboard snapshot for the rolling window ending
// at windowEnd (today when zero). The trend delta compares the window with
// the preceding one of equal length.
func (s *Service) OverallStats(ctx context.Context, windowEnd time.Time) (Overview, error) {
	if windowEnd.IsZero() {
		windowEnd = nowFunc()
	}
	end := attendance.DateOnly(windowEnd)
	winStart := end.AddDate(0, 0, -s.windowDays)
	prevStart := end.AddDate(0, 0, -2*s.windowDays)

	records, err := s.src.RecordsInRange(ctx, prevStart, end)
	if err != nil {
		return Overview{}, err
	}

	var curPresent, curTotal, prevPresent, prevTotal int
	perStudent := map[string]*counter{}
	for _, rec := range records {
		day := attendance.DateOnly(rec.Date)
		switch {
		case !day.Before(winStart): // [end-window, end]
			curTotal++
			if rec.Status == attendance.StatusPresent {
				curPresent++
			}
			c := perStudent[rec.StudentID]
			if c == nil {
				c = &counter{}
				perStudent[rec.StudentID] = c
			}
			c.total++
			if rec.Status == attendance.StatusPresent {
				c.present++
			}
		default: // [end-2*window, end-window)
			prevTotal++
			if rec.Status == attendance.StatusPresent {
				prevPresent++
			}
		}
	}

	atRisk, perfect := 0, 0
	for _, c := range perStudent {
		ratio := float64(c.present) / float64(c.total)
		if ratio < atRiskThreshold {
			atRisk++
		}
		if c.present == c.total {
			perfect++
		}
	}

	// Counts every configured timetable entry, not just today's day-of-week.
	classesToday, err := s.src.TimetableEntryCount(ctx)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		OverallPct:             pctOf(curPresent, curTotal),
		TrendDelta:             round1(rawPct(curPresent, curTotal) - rawPct(prevPresent, prevTotal)),
		ClassesToday:           classesToday,
		AtRiskCount:            atRisk,
		PerfectAttendanceCount: perfect,
		WindowEnd:              end,
	}, nil
}

// DepartmentBreakdown sums present/total per department over the window.
// Departments with zero records in the window are excluded, not reported
// as 0%.
func (s *Service) DepartmentBreakdown(ctx context.Context, windowEnd time.Time, windowDays int) ([]DepartmentStat, error) {
	if windowDays < 0 {
		return nil, ErrInvalidRange
	}
	if windowDays == 0 {
		windowDays = s.windowDays
	}
	if windowEnd.IsZero() {
		windowEnd = nowFunc()
	}
	end := attendance.DateOnly(windowEnd)
	start := end.AddDate(0, 0, -windowDays)

	records, err := s.src.RecordsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byDept := map[string]*DepartmentStat{}
	order := make([]string, 0)
	for _, rec := range records {
		stat, ok := byDept[rec.DepartmentID]
		if !ok {
			stat = &DepartmentStat{DepartmentID: rec.DepartmentID, DepartmentName: rec.DepartmentName}
			byDept[rec.DepartmentID] = stat
			order = append(order, rec.DepartmentID)
		}
		stat.Total++
		if rec.Status == attendance.StatusPresent {
			stat.Present++
		}
	}

	out := make([]DepartmentStat, 0, len(order))
	for _, id := range order {
		stat := byDept[id]
		stat.Pct = pctOf(stat.Present, stat.Total)
		out = append(out, *stat)
	}
	return out, nil
}

// WeeklyTrend reports one percentage per trailing 7-day bucket, oldest to
// newest, labeled "Week 1".."Week N". A bucket with no records yields 0%.
func (s *Service) WeeklyTrend(ctx context.Context, weeks int, anchor time.Time) ([]WeekBucket, error) {
	if weeks < 0 {
		return nil, ErrInvalidRange
	}
	if weeks == 0 {
		weeks = 5
	}
	if anchor.IsZero() {
		anchor = nowFunc()
	}
	end := attendance.DateOnly(anchor)
	start := end.AddDate(0, 0, -7*weeks)

	records, err := s.src.RecordsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]WeekBucket, 0, weeks)
	for i := weeks - 1; i >= 0; i-- {
		from := end.AddDate(0, 0, -7*(i+1))
		to := end.AddDate(0, 0, -7*i)
		bucket := WeekBucket{Label: fmt.Sprintf("Week %d", weeks-i)}
		for _, rec := range records {
			day := attendance.DateOnly(rec.Date)
			if day.Before(from) || !day.Before(to) {
				continue
			}
			bucket.Total++
			if rec.Status == attendance.StatusPresent {
				bucket.Present++
			}
		}
		bucket.Pct = pctOf(bucket.Present, bucket.Total)
		out = append(out, bucket)
	}
	return out, nil
}

// LowAttendanceStudents ranks students under 75% over the window, ascending
// by percentage, truncated to limit. Each row carries the student's modal
// subject; ties keep the first subject encountered in the scan.
func (s *Service) LowAttendanceStudents(ctx context.Context, windowDays, limit int) ([]LowAttendanceStudent, error) {
	if windowDays < 0 {
		return nil, ErrInvalidRange
	}
	if windowDays == 0 {
		windowDays = s.windowDays
	}
	if limit <= 0 {
		limit = 10
	}
	end := attendance.DateOnly(nowFunc())
	start := end.AddDate(0, 0, -windowDays)

	records, err := s.src.RecordsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	type studentAgg struct {
		name          string
		present       int
		total         int
		subjectCounts map[string]int
		subjectOrder  []string
		subjectNames  map[string]string
	}
	byStudent := map[string]*studentAgg{}
	order := make([]string, 0)

	for _, rec := range records {
		agg, ok := byStudent[rec.StudentID]
		if !ok {
			agg = &studentAgg{
				name:          rec.StudentName,
				subjectCounts: map[string]int{},
				subjectNames:  map[string]string{},
			}
			byStudent[rec.StudentID] = agg
			order = append(order, rec.StudentID)
		}
		agg.total++
		if rec.Status == attendance.StatusPresent {
			agg.present++
		}
		if _, seen := agg.subjectCounts[rec.SubjectID]; !seen {
			agg.subjectOrder = append(agg.subjectOrder, rec.SubjectID)
			agg.subjectNames[rec.SubjectID] = rec.SubjectName
		}
		agg.subjectCounts[rec.SubjectID]++
	}

	out := make([]LowAttendanceStudent, 0)
	for _, id := range order {
		agg := byStudent[id]
		pct := pctOf(agg.present, agg.total)
		if pct >= 75 {
			continue
		}
		modalID := ""
		modalCount := -1
		for _, subjID := range agg.subjectOrder {
			if agg.subjectCounts[subjID] > modalCount {
				modalID = subjID
				modalCount = agg.subjectCounts[subjID]
			}
		}
		out = append(out, LowAttendanceStudent{
			StudentID:        id,
			StudentName:      agg.name,
			Present:          agg.present,
			Total:            agg.total,
			Pct:              pct,
			ModalSubjectID:   modalID,
			ModalSubjectName: agg.subjectNames[modalID],
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Pct < out[j].Pct })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type counter struct {
	present int
	total   int
}

// pctOf rounds 100*present/total to the nearest integer; 0 when total is 0.
func pctOf(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(present) / float64(total)))
}

// rawPct is the unrounded percentage, used for the one-decimal trend delta.
func rawPct(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(present) / float64(total)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
