package models

import "time"

// Grade bounds accepted by the grading workflow, inclusive.
const (
	MinHomeworkGrade = 0
	MaxHomeworkGrade = 10
)

// HomeworkState is the derived state of a homework for one student.
type HomeworkState string

const (
	HomeworkPending   HomeworkState = "pending"
	HomeworkOverdue   HomeworkState = "overdue"
	HomeworkSubmitted HomeworkState = "submitted"
	HomeworkGraded    HomeworkState = "graded"
)

// ClassifyHomework derives the per-student state from the submission (nil
// when absent), the due date and the current instant.
func ClassifyHomework(sub *HomeworkSubmission, dueDate, now time.Time) HomeworkState {
	if sub == nil {
		if now.After(dueDate) {
			return HomeworkOverdue
		}
		return HomeworkPending
	}
	if sub.Grade != nil {
		return HomeworkGraded
	}
	return HomeworkSubmitted
}

// Homework is an assignment given to a classroom with a due date.
type Homework struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HomeworkDetail enriches homework with classroom context.
type HomeworkDetail struct {
	Homework
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
}

// HomeworkSubmission is the single submission a student may make. Content is
// immutable once created; only the grading action sets grade and feedback.
type HomeworkSubmission struct {
	ID          string    `db:"id" json:"id"`
	HomeworkID  string    `db:"homework_id" json:"homework_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	Content     string    `db:"content" json:"content"`
	Grade       *float64  `db:"grade" json:"grade,omitempty"`
	Feedback    *string   `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// HomeworkSubmissionDetail annotates a submission with student identity for
// the teacher's review listing.
type HomeworkSubmissionDetail struct {
	HomeworkSubmission
	StudentName string `db:"student_name" json:"student_name"`
	StudentCode string `db:"student_code" json:"student_code"`
}

// StudentHomework is one homework joined with the calling student's own
// submission, if any, plus the derived state.
type StudentHomework struct {
	HomeworkDetail
	Submission *HomeworkSubmission `json:"submission,omitempty"`
	State      HomeworkState       `json:"state"`
}
