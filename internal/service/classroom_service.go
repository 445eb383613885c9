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

type classroomRepository interface {
	List(ctx context.Context, tenantID string) ([]models.ClassroomDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	ListEnrolledStudents(ctx context.Context, tenantID, classroomID string) ([]models.StudentDetail, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	DeleteEnrollment(ctx context.Context, tenantID, classroomID, studentID string) error
}

type classroomStudentRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error)
}

// CreateClassroomRequest holds payload for creating classrooms.
type CreateClassroomRequest struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level"`
	Grade string `json:"grade" validate:"required"`
}

// ClassroomService handles classroom and enrollment use-cases.
type ClassroomService struct {
	repo      classroomRepository
	students  classroomStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs the classroom service.
func NewClassroomService(repo classroomRepository, students classroomStudentRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns the tenant's classrooms with enrollment counts.
func (s *ClassroomService) List(ctx context.Context, identity models.Identity) ([]models.ClassroomDetail, error) {
	classrooms, err := s.repo.List(ctx, identity.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return classrooms, nil
}

// Get returns one classroom.
func (s *ClassroomService) Get(ctx context.Context, identity models.Identity, id string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

// Create registers a new classroom owned by the calling teacher.
func (s *ClassroomService) Create(ctx context.Context, identity models.Identity, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	teacherID := identity.UserID
	classroom := &models.Classroom{
		TenantID:  identity.TenantID,
		Name:      req.Name,
		Level:     req.Level,
		Grade:     req.Grade,
		TeacherID: &teacherID,
	}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// Students lists the members of a classroom.
func (s *ClassroomService) Students(ctx context.Context, identity models.Identity, classroomID string) ([]models.StudentDetail, error) {
	if _, err := s.Get(ctx, identity, classroomID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListEnrolledStudents(ctx, identity.TenantID, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom students")
	}
	return students, nil
}

// Enroll adds a student to a classroom. Enrolling an already enrolled
// student succeeds without creating a second membership.
func (s *ClassroomService) Enroll(ctx context.Context, identity models.Identity, classroomID, studentID string) error {
	if _, err := s.Get(ctx, identity, classroomID); err != nil {
		return err
	}
	if _, err := s.students.FindByID(ctx, identity.TenantID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollment := &models.Enrollment{
		ClassroomID: classroomID,
		StudentID:   studentID,
		TenantID:    identity.TenantID,
	}
	if err := s.repo.CreateEnrollment(ctx, enrollment); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateKey) {
			s.logger.Debug("student already enrolled",
				zap.String("classroom_id", classroomID),
				zap.String("student_id", studentID))
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return nil
}

// Unenroll removes a student from a classroom. Removing a student who is
// not enrolled is a no-op.
func (s *ClassroomService) Unenroll(ctx context.Context, identity models.Identity, classroomID, studentID string) error {
	if _, err := s.Get(ctx, identity, classroomID); err != nil {
		return err
	}
	if err := s.repo.DeleteEnrollment(ctx, identity.TenantID, classroomID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll student")
	}
	return nil
}
