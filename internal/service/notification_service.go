package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	"github.com/madrasatech/madrasa-api/internal/realtime"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	MarkRead(ctx context.Context, userID, id string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type notificationClassroomRepository interface {
	ListEnrolledStudents(ctx context.Context, tenantID, classroomID string) ([]models.StudentDetail, error)
}

// notificationPublisher pushes events to connected clients. A nil publisher
// disables realtime delivery without affecting persistence.
type notificationPublisher interface {
	Publish(userID string, eventType string, data interface{})
}

// CreateNotificationRequest delivers a message to one user.
type CreateNotificationRequest struct {
	UserID string                  `json:"user_id" validate:"required"`
	Title  string                  `json:"title" validate:"required"`
	Body   string                  `json:"body" validate:"required"`
	Link   *string                 `json:"link"`
	Type   models.NotificationType `json:"type" validate:"omitempty,oneof=info warning success"`
}

// UnreadCountResponse reports the unread badge value.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were flipped.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// NotificationService handles per-user notifications and realtime fan-out.
type NotificationService struct {
	repo       notificationRepository
	classrooms notificationClassroomRepository
	publisher  notificationPublisher
	validator  *validator.Validate
	logger     *zap.Logger
	listLimit  int
}

// NewNotificationService constructs the notification service.
func NewNotificationService(repo notificationRepository, classrooms notificationClassroomRepository, publisher notificationPublisher, validate *validator.Validate, logger *zap.Logger, listLimit int) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if listLimit <= 0 {
		listLimit = 50
	}
	return &NotificationService{repo: repo, classrooms: classrooms, publisher: publisher, validator: validate, logger: logger, listLimit: listLimit}
}

// List returns the caller's newest notifications.
func (s *NotificationService) List(ctx context.Context, identity models.Identity) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, identity.UserID, s.listLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the caller's unread badge value.
func (s *NotificationService) UnreadCount(ctx context.Context, identity models.Identity) (*UnreadCountResponse, error) {
	count, err := s.repo.CountUnread(ctx, identity.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return &UnreadCountResponse{Unread: count}, nil
}

// Create stores a notification and pushes it to the recipient's active
// connections. Realtime delivery is best-effort; the row is the source of
// truth.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	notificationType := req.Type
	if notificationType == "" {
		notificationType = models.NotificationInfo
	}
	notification := &models.Notification{
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Link:   req.Link,
		Type:   notificationType,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	if s.publisher != nil {
		s.publisher.Publish(notification.UserID, realtime.EventNotificationCreated, notification)
	}
	return notification, nil
}

// NotifyClassroom delivers one notification to every student enrolled in a
// classroom. Delivery failures for individual students are logged, not
// surfaced, so one bad row cannot block the rest.
func (s *NotificationService) NotifyClassroom(ctx context.Context, identity models.Identity, classroomID, title, body string, link *string) {
	students, err := s.classrooms.ListEnrolledStudents(ctx, identity.TenantID, classroomID)
	if err != nil {
		s.logger.Warn("failed to resolve classroom recipients",
			zap.String("classroom_id", classroomID), zap.Error(err))
		return
	}
	for _, student := range students {
		if _, err := s.Create(ctx, CreateNotificationRequest{
			UserID: student.UserID,
			Title:  title,
			Body:   body,
			Link:   link,
			Type:   models.NotificationInfo,
		}); err != nil {
			s.logger.Warn("failed to notify student",
				zap.String("user_id", student.UserID), zap.Error(err))
		}
	}
}

// MarkRead flips one notification owned by the caller.
func (s *NotificationService) MarkRead(ctx context.Context, identity models.Identity, id string) error {
	rows, err := s.repo.MarkRead(ctx, identity.UserID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flips every unread notification of the caller. Calling it
// again immediately reports zero updates and still succeeds.
func (s *NotificationService) MarkAllRead(ctx context.Context, identity models.Identity) (*MarkAllReadResponse, error) {
	rows, err := s.repo.MarkAllRead(ctx, identity.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return &MarkAllReadResponse{Updated: rows}, nil
}
