package models

import "time"

// SessionStatus is derived from the session time bounds, never persisted.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionLive      SessionStatus = "live"
	SessionEnded     SessionStatus = "ended"
)

// ClassifySession derives the status of a live session, bounds inclusive.
func ClassifySession(start, end, now time.Time) SessionStatus {
	switch {
	case now.Before(start):
		return SessionScheduled
	case now.After(end):
		return SessionEnded
	default:
		return SessionLive
	}
}

// LiveSession is a scheduled stream for a classroom.
type LiveSession struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	StreamURL   string    `db:"stream_url" json:"stream_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// LiveSessionDetail enriches a session with classroom context and status.
type LiveSessionDetail struct {
	LiveSession
	ClassroomName string        `db:"classroom_name" json:"classroom_name"`
	Status        SessionStatus `db:"-" json:"status"`
}

// Attendance records a student joining a session, deduplicated per student.
type Attendance struct {
	ID            string    `db:"id" json:"id"`
	LiveSessionID string    `db:"live_session_id" json:"live_session_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	JoinTime      time.Time `db:"join_time" json:"join_time"`
}
