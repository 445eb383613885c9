package dto

// DashboardSummary holds the teacher dashboard counters. Each counter is
// computed independently; a failed source degrades to zero rather than
// failing the whole summary.
type DashboardSummary struct {
	Students     int `json:"students"`
	Classrooms   int `json:"classrooms"`
	Exams        int `json:"exams"`
	LiveSessions int `json:"live_sessions"`
}

// StudentDashboardSummary holds the student-facing counters.
type StudentDashboardSummary struct {
	PendingHomework  int `json:"pending_homework"`
	UpcomingExams    int `json:"upcoming_exams"`
	UpcomingSessions int `json:"upcoming_sessions"`
}
