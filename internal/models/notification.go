package models

import "time"

// NotificationType tags the notification category.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
)

// Notification belongs to one user. Read state moves one way, unread to read.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Link      *string          `db:"link" json:"link,omitempty"`
	Type      NotificationType `db:"type" json:"type"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// EventID keys realtime delivery so a connection receives each
// notification at most once.
func (n Notification) EventID() string {
	return n.ID
}
