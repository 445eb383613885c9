package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type videoRepository interface {
	List(ctx context.Context, tenantID string) ([]models.VideoLessonDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.VideoLessonDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.VideoLessonDetail, error)
	Create(ctx context.Context, video *models.VideoLesson) error
	UpsertProgress(ctx context.Context, progress *models.ViewProgress) error
	FindProgress(ctx context.Context, videoID, studentID string) (*models.ViewProgress, error)
}

type videoClassroomRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error)
	ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error)
}

// CreateVideoLessonRequest holds payload for publishing a video lesson.
type CreateVideoLessonRequest struct {
	ClassroomID string               `json:"classroom_id" validate:"required"`
	Title       string               `json:"title" validate:"required"`
	Description *string              `json:"description"`
	VideoURL    string               `json:"video_url" validate:"required,url"`
	Provider    models.VideoProvider `json:"provider_type" validate:"required,oneof=youtube vimeo custom"`
}

// TrackProgressRequest reports how far a student has watched.
type TrackProgressRequest struct {
	WatchSeconds int `json:"watch_seconds" validate:"gte=0"`
}

// VideoService handles video lessons and per-student watch progress.
type VideoService struct {
	repo       videoRepository
	classrooms videoClassroomRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewVideoService constructs the video service.
func NewVideoService(repo videoRepository, classrooms videoClassroomRepository, validate *validator.Validate, logger *zap.Logger) *VideoService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoService{repo: repo, classrooms: classrooms, validator: validate, logger: logger}
}

// Create publishes a video lesson to a classroom.
func (s *VideoService) Create(ctx context.Context, identity models.Identity, req CreateVideoLessonRequest) (*models.VideoLesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid video payload")
	}
	if _, err := s.classrooms.FindByID(ctx, identity.TenantID, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	video := &models.VideoLesson{
		TenantID:    identity.TenantID,
		ClassroomID: req.ClassroomID,
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Provider:    req.Provider,
	}
	if err := s.repo.Create(ctx, video); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create video lesson")
	}
	return video, nil
}

// List returns the tenant's video lessons.
func (s *VideoService) List(ctx context.Context, identity models.Identity) ([]models.VideoLessonDetail, error) {
	videos, err := s.repo.List(ctx, identity.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list video lessons")
	}
	return videos, nil
}

// ListForStudent returns lessons for the student's classrooms.
func (s *VideoService) ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.VideoLessonDetail, error) {
	classroomIDs, err := s.classrooms.ListClassroomIDsForStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classrooms")
	}
	videos, err := s.repo.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list video lessons")
	}
	return videos, nil
}

// Get returns one lesson.
func (s *VideoService) Get(ctx context.Context, identity models.Identity, id string) (*models.VideoLessonDetail, error) {
	video, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "video lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video lesson")
	}
	return video, nil
}

// TrackProgress stores the student's watch position. The write is an
// upsert, so the latest report wins regardless of ordering races.
func (s *VideoService) TrackProgress(ctx context.Context, identity models.Identity, studentID, videoID string, req TrackProgressRequest) (*models.ViewProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}
	video, err := s.Get(ctx, identity, videoID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, identity, studentID, video.ClassroomID); err != nil {
		return nil, err
	}

	progress := &models.ViewProgress{
		VideoLessonID: videoID,
		StudentID:     studentID,
		WatchSeconds:  req.WatchSeconds,
	}
	if err := s.repo.UpsertProgress(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store progress")
	}
	return progress, nil
}

// Progress returns the student's stored watch position, zero when absent.
func (s *VideoService) Progress(ctx context.Context, identity models.Identity, studentID, videoID string) (*models.ViewProgress, error) {
	if _, err := s.Get(ctx, identity, videoID); err != nil {
		return nil, err
	}
	progress, err := s.repo.FindProgress(ctx, videoID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ViewProgress{VideoLessonID: videoID, StudentID: studentID}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	return progress, nil
}

func (s *VideoService) requireEnrollment(ctx context.Context, identity models.Identity, studentID, classroomID string) error {
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
