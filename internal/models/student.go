package models

import "time"

// StudentProfile carries the academic identity of a student user. The
// student code is unique across tenants and used for quick lookup.
type StudentProfile struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	StudentCode string     `db:"student_code" json:"student_code"`
	Grade       string     `db:"grade" json:"grade"`
	Level       string     `db:"level" json:"level"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// StudentDetail joins a profile with its user account.
type StudentDetail struct {
	StudentProfile
	Name     string  `db:"user_name" json:"name"`
	Username *string `db:"user_username" json:"username,omitempty"`
	Email    *string `db:"user_email" json:"email,omitempty"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search   string
	Grade    string
	Level    string
	Page     int
	PageSize int
}
