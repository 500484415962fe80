package attendance

import "sort"

type sessionKey struct {
	date      string
	subjectID string
	facultyID string
}

// BuildSessions groups per-student records into class sessions keyed by
// (date, subject, marking faculty). Two faculty marking the same subject on
// the same day produce two sessions; the key includes the marker on purpose
// (makeup classes are separate events).
func BuildSessions(records []Record) []ClassSession {
	byKey := make(map[sessionKey]*ClassSession)
	order := make([]sessionKey, 0)

	for _, rec := range records {
		key := sessionKey{
			date:      DateOnly(rec.Date).Format("2006-01-02"),
			subjectID: rec.SubjectID,
			facultyID: rec.FacultyID,
		}
		sess, ok := byKey[key]
		if !ok {
			sess = &ClassSession{
				Date:        DateOnly(rec.Date),
				SubjectID:   rec.SubjectID,
				SubjectName: rec.SubjectName,
				FacultyID:   rec.FacultyID,
			}
			byKey[key] = sess
			order = append(order, key)
		}
		switch rec.Status {
		case StatusPresent:
			sess.Present++
		case StatusAbsent:
			sess.Absent++
		}
		sess.Roster = append(sess.Roster, RosterEntry{
			StudentID:   rec.StudentID,
			StudentName: rec.StudentName,
			Status:      rec.Status,
		})
	}

	out := make([]ClassSession, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

// SortSessionsDesc orders sessions newest first. Ties on the same day keep
// their grouping order, which follows record insertion order.
func SortSessionsDesc(sessions []ClassSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Date.After(sessions[j].Date)
	})
}
