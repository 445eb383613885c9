package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExamStatus is the persisted lifecycle of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
	ExamStatusCompleted ExamStatus = "completed"
)

// ExamState is the temporal state derived from the exam time bounds and the
// current instant. It is recomputed on every read and never persisted.
type ExamState string

const (
	ExamUpcoming ExamState = "upcoming"
	ExamActive   ExamState = "active"
	ExamExpired  ExamState = "expired"
)

// ClassifyExam places an exam into exactly one temporal state. Both bounds
// are inclusive for the active window, so an exam whose start equals its end
// is active for that single instant.
func ClassifyExam(start, end, now time.Time) ExamState {
	switch {
	case now.Before(start):
		return ExamUpcoming
	case now.After(end):
		return ExamExpired
	default:
		return ExamActive
	}
}

// QuestionType enumerates supported question kinds. Only MCQ and TrueFalse
// carry an auto-gradable answer.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionTrueFalse   QuestionType = "TrueFalse"
	QuestionShortAnswer QuestionType = "ShortAnswer"
	QuestionEssay       QuestionType = "Essay"
)

// AutoGradable reports whether submissions to this question type contribute
// to the preliminary score.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionMCQ || t == QuestionTrueFalse
}

// Exam belongs to a classroom and owns an ordered list of questions.
type Exam struct {
	ID              string     `db:"id" json:"id"`
	TenantID        string     `db:"tenant_id" json:"tenant_id"`
	ClassroomID     string     `db:"classroom_id" json:"classroom_id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	EndTime         time.Time  `db:"end_time" json:"end_time"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	TotalMarks      int        `db:"total_marks" json:"total_marks"`
	Status          ExamStatus `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// ExamDetail enriches an exam with classroom context and counters.
type ExamDetail struct {
	Exam
	ClassroomName   string    `db:"classroom_name" json:"classroom_name"`
	QuestionCount   int       `db:"question_count" json:"question_count"`
	SubmissionCount int       `db:"submission_count" json:"submission_count"`
	State           ExamState `db:"-" json:"state"`
}

// OptionList stores multiple-choice options as a JSON column.
type OptionList []string

// Value implements driver.Valuer.
func (o OptionList) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// Scan implements sql.Scanner.
func (o *OptionList) Scan(src interface{}) error {
	if src == nil {
		*o = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("option list: unsupported source type %T", src)
	}
	return json.Unmarshal(raw, o)
}

// AnswerMap stores submitted answers keyed by question id as a JSON column.
type AnswerMap map[string]string

// Value implements driver.Valuer.
func (a AnswerMap) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(map[string]string{})
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AnswerMap) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("answer map: unsupported source type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// ExamQuestion is one question inside an exam, kept in display order.
type ExamQuestion struct {
	ID            string       `db:"id" json:"id"`
	ExamID        string       `db:"exam_id" json:"exam_id"`
	QuestionText  string       `db:"question_text" json:"question_text"`
	QuestionType  QuestionType `db:"question_type" json:"question_type"`
	Options       OptionList   `db:"options" json:"options,omitempty"`
	CorrectAnswer string       `db:"correct_answer" json:"correct_answer,omitempty"`
	Points        int          `db:"points" json:"points"`
	Position      int          `db:"position" json:"position"`
}

// StudentQuestion is the question shape handed to students while taking an
// exam: the correct answer never leaves the server.
type StudentQuestion struct {
	ID           string       `json:"id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Options      OptionList   `json:"options,omitempty"`
	Points       int          `json:"points"`
	Position     int          `json:"position"`
}

// ForStudent strips grading data from a question.
func (q ExamQuestion) ForStudent() StudentQuestion {
	return StudentQuestion{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Options:      q.Options,
		Points:       q.Points,
		Position:     q.Position,
	}
}

// ExamSubmission stores a student's raw answers and the preliminary score
// computed at submission time. The score is never recomputed retroactively.
type ExamSubmission struct {
	ID          string    `db:"id" json:"id"`
	ExamID      string    `db:"exam_id" json:"exam_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	Answers     AnswerMap `db:"answers" json:"answers"`
	Score       int       `db:"score" json:"score"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// ExamSubmissionDetail annotates a submission with the student's identity.
type ExamSubmissionDetail struct {
	ExamSubmission
	StudentName string `db:"student_name" json:"student_name"`
	StudentCode string `db:"student_code" json:"student_code"`
}
