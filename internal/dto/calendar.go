package dto

import "time"

// CalendarEventKind names the source of a calendar entry.
type CalendarEventKind string

const (
	CalendarExam     CalendarEventKind = "exam"
	CalendarSession  CalendarEventKind = "live_session"
	CalendarHomework CalendarEventKind = "homework"
)

// CalendarEvent is one unified entry merged from exams, live sessions and
// homework due dates.
type CalendarEvent struct {
	ID          string            `json:"id"`
	Kind        CalendarEventKind `json:"kind"`
	Title       string            `json:"title"`
	ClassroomID string            `json:"classroom_id"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      *time.Time        `json:"ends_at,omitempty"`
}
