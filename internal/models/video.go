package models

import "time"

// VideoProvider tags the hosting service for a video lesson.
type VideoProvider string

const (
	ProviderYouTube VideoProvider = "youtube"
	ProviderVimeo   VideoProvider = "vimeo"
	ProviderCustom  VideoProvider = "custom"
)

// VideoLesson is a recorded lesson attached to a classroom.
type VideoLesson struct {
	ID          string        `db:"id" json:"id"`
	TenantID    string        `db:"tenant_id" json:"tenant_id"`
	ClassroomID string        `db:"classroom_id" json:"classroom_id"`
	Title       string        `db:"title" json:"title"`
	Description *string       `db:"description" json:"description,omitempty"`
	VideoURL    string        `db:"video_url" json:"video_url"`
	Provider    VideoProvider `db:"provider_type" json:"provider_type"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// VideoLessonDetail enriches a lesson with classroom context.
type VideoLessonDetail struct {
	VideoLesson
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
}

// ViewProgress tracks how far a student has watched a lesson. One row per
// (video, student), upserted on every progress report.
type ViewProgress struct {
	ID            string    `db:"id" json:"id"`
	VideoLessonID string    `db:"video_lesson_id" json:"video_lesson_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	WatchSeconds  int       `db:"watch_seconds" json:"watch_seconds"`
	LastUpdated   time.Time `db:"last_updated" json:"last_updated"`
}
