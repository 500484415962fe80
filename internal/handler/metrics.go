package handler

import "github.com/prometheus/client_golang/prometheus"

var (
	markedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_attendance_records_marked_total",
		Help: "Attendance records written via the marking endpoint.",
	})

	gridMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_timetable_mutations_total",
		Help: "Timetable grid mutations by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(markedRecords, gridMutations)
}
