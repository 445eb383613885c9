package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type liveSessionRepository interface {
	List(ctx context.Context, tenantID string) ([]models.LiveSessionDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.LiveSessionDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.LiveSessionDetail, error)
	Create(ctx context.Context, session *models.LiveSession) error
	CreateAttendance(ctx context.Context, attendance *models.Attendance) error
}

type liveSessionClassroomRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error)
	ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error)
}

// CreateLiveSessionRequest holds payload for scheduling a live session.
type CreateLiveSessionRequest struct {
	ClassroomID string    `json:"classroom_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description *string   `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	StreamURL   string    `json:"stream_url" validate:"required,url"`
}

// JoinSessionResponse hands the stream location to a joining student.
type JoinSessionResponse struct {
	Session   models.LiveSessionDetail `json:"session"`
	StreamURL string                   `json:"stream_url"`
}

// LiveSessionService handles scheduling and attendance of live sessions.
type LiveSessionService struct {
	repo       liveSessionRepository
	classrooms liveSessionClassroomRepository
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewLiveSessionService constructs the live session service.
func NewLiveSessionService(repo liveSessionRepository, classrooms liveSessionClassroomRepository, validate *validator.Validate, logger *zap.Logger) *LiveSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveSessionService{repo: repo, classrooms: classrooms, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create schedules a live session for a classroom.
func (s *LiveSessionService) Create(ctx context.Context, identity models.Identity, req CreateLiveSessionRequest) (*models.LiveSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if req.EndTime.Before(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must not precede start time")
	}
	if _, err := s.classrooms.FindByID(ctx, identity.TenantID, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	session := &models.LiveSession{
		TenantID:    identity.TenantID,
		ClassroomID: req.ClassroomID,
		TeacherID:   identity.UserID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		StreamURL:   req.StreamURL,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// List returns the tenant's sessions with derived status.
func (s *LiveSessionService) List(ctx context.Context, identity models.Identity) ([]models.LiveSessionDetail, error) {
	sessions, err := s.repo.List(ctx, identity.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	now := s.now()
	for i := range sessions {
		sessions[i].Status = models.ClassifySession(sessions[i].StartTime, sessions[i].EndTime, now)
	}
	return sessions, nil
}

// ListForStudent returns the sessions of the student's classrooms.
func (s *LiveSessionService) ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.LiveSessionDetail, error) {
	classroomIDs, err := s.classrooms.ListClassroomIDsForStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classrooms")
	}
	sessions, err := s.repo.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	now := s.now()
	for i := range sessions {
		sessions[i].Status = models.ClassifySession(sessions[i].StartTime, sessions[i].EndTime, now)
	}
	return sessions, nil
}

// Get returns one session with derived status.
func (s *LiveSessionService) Get(ctx context.Context, identity models.Identity, id string) (*models.LiveSessionDetail, error) {
	session, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	session.Status = models.ClassifySession(session.StartTime, session.EndTime, s.now())
	return session, nil
}

// Join records a student's attendance and returns the stream location. A
// repeat join keeps the original attendance row and still succeeds. Joining
// an ended session is rejected.
func (s *LiveSessionService) Join(ctx context.Context, identity models.Identity, studentID, sessionID string) (*JoinSessionResponse, error) {
	session, err := s.Get(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, identity, studentID, session.ClassroomID); err != nil {
		return nil, err
	}
	if session.Status == models.SessionEnded {
		return nil, appErrors.Clone(appErrors.ErrWindowClosed, "session has ended")
	}

	attendance := &models.Attendance{
		LiveSessionID: sessionID,
		StudentID:     studentID,
		TenantID:      identity.TenantID,
		JoinTime:      s.now(),
	}
	if err := s.repo.CreateAttendance(ctx, attendance); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateKey) {
			s.logger.Debug("student already joined session",
				zap.String("session_id", sessionID),
				zap.String("student_id", studentID))
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
		}
	}
	return &JoinSessionResponse{Session: *session, StreamURL: session.StreamURL}, nil
}

func (s *LiveSessionService) requireEnrollment(ctx context.Context, identity models.Identity, studentID, classroomID string) error {
	classroomIDs, err := s.classrooms.ListClassroomIDsForStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classrooms")
	}
	for _, id := range classroomIDs {
		if id == classroomID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this classroom")
}
