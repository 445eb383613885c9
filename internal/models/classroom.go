package models

import "time"

// Classroom is a named grouping of students within a tenant.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	Grade     string    `db:"grade" json:"grade"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassroomDetail enriches a classroom with its enrollment count.
type ClassroomDetail struct {
	Classroom
	EnrollmentCount int `db:"enrollment_count" json:"enrollment_count"`
}

// Enrollment links one student profile to one classroom. The pair is unique;
// re-enrolling the same student is treated as a no-op, not an error.
type Enrollment struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
