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

type homeworkRepository interface {
	List(ctx context.Context, tenantID string) ([]models.HomeworkDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.HomeworkDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error)
	Create(ctx context.Context, homework *models.Homework) error
	FindSubmission(ctx context.Context, homeworkID, studentID string) (*models.HomeworkSubmission, error)
	FindSubmissionByID(ctx context.Context, tenantID, id string) (*models.HomeworkSubmission, error)
	CreateSubmission(ctx context.Context, submission *models.HomeworkSubmission) error
	ListSubmissionsByStudent(ctx context.Context, tenantID, studentID string) ([]models.HomeworkSubmission, error)
	ListSubmissions(ctx context.Context, tenantID, homeworkID string) ([]models.HomeworkSubmissionDetail, error)
	UpdateGrade(ctx context.Context, tenantID, submissionID string, grade float64, feedback *string) error
}

type homeworkClassroomRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error)
	ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error)
}

// CreateHomeworkRequest holds payload for creating a homework assignment.
type CreateHomeworkRequest struct {
	ClassroomID string    `json:"classroom_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// SubmitHomeworkRequest carries a student's homework answer.
type SubmitHomeworkRequest struct {
	Content string `json:"content" validate:"required"`
}

// GradeHomeworkRequest carries a teacher's grade and optional feedback.
type GradeHomeworkRequest struct {
	Grade    *float64 `json:"grade" validate:"required"`
	Feedback *string  `json:"feedback"`
}

// HomeworkService handles the homework workflow from assignment to grading.
type HomeworkService struct {
	repo       homeworkRepository
	classrooms homeworkClassroomRepository
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewHomeworkService constructs the homework service.
func NewHomeworkService(repo homeworkRepository, classrooms homeworkClassroomRepository, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{repo: repo, classrooms: classrooms, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new homework assignment.
func (s *HomeworkService) Create(ctx context.Context, identity models.Identity, req CreateHomeworkRequest) (*models.Homework, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	if _, err := s.classrooms.FindByID(ctx, identity.TenantID, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	homework := &models.Homework{
		TenantID:    identity.TenantID,
		ClassroomID: req.ClassroomID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
	}
	if err := s.repo.Create(ctx, homework); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}
	return homework, nil
}

// List returns the tenant's homework assignments ordered by due date.
func (s *HomeworkService) List(ctx context.Context, identity models.Identity) ([]models.HomeworkDetail, error) {
	homework, err := s.repo.List(ctx, identity.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}
	return homework, nil
}

// Get returns one assignment.
func (s *HomeworkService) Get(ctx context.Context, identity models.Identity, id string) (*models.HomeworkDetail, error) {
	homework, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	return homework, nil
}

// ListForStudent returns the student's assignments joined with their own
// submission and the derived per-student state.
func (s *HomeworkService) ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.StudentHomework, error) {
	classroomIDs, err := s.classrooms.ListClassroomIDsForStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classrooms")
	}
	homework, err := s.repo.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
	}
	submissions, err := s.repo.ListSubmissionsByStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	byHomework := make(map[string]*models.HomeworkSubmission, len(submissions))
	for i := range submissions {
		byHomework[submissions[i].HomeworkID] = &submissions[i]
	}

	now := s.now()
	result := make([]models.StudentHomework, 0, len(homework))
	for _, hw := range homework {
		submission := byHomework[hw.ID]
		result = append(result, models.StudentHomework{
			HomeworkDetail: hw,
			Submission:     submission,
			State:          models.ClassifyHomework(submission, hw.DueDate, now),
		})
	}
	return result, nil
}

// Submit records a student's answer. The due date is a hard cutoff and a
// second submission is a conflict.
func (s *HomeworkService) Submit(ctx context.Context, identity models.Identity, studentID, homeworkID string, req SubmitHomeworkRequest) (*models.HomeworkSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	homework, err := s.Get(ctx, identity, homeworkID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, identity, studentID, homework.ClassroomID); err != nil {
		return nil, err
	}
	if s.now().After(homework.DueDate) {
		return nil, appErrors.Clone(appErrors.ErrWindowClosed, "homework is past its due date")
	}

	submission := &models.HomeworkSubmission{
		HomeworkID:  homeworkID,
		StudentID:   studentID,
		TenantID:    identity.TenantID,
		Content:     req.Content,
		SubmittedAt: s.now(),
	}
	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "homework already submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	return submission, nil
}

// Submissions returns an assignment's submissions with student identity.
func (s *HomeworkService) Submissions(ctx context.Context, identity models.Identity, homeworkID string) ([]models.HomeworkSubmissionDetail, error) {
	if _, err := s.Get(ctx, identity, homeworkID); err != nil {
		return nil, err
	}
	submissions, err := s.repo.ListSubmissions(ctx, identity.TenantID, homeworkID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// Grade sets the grade and feedback on a submission. Regrading overwrites
// the previous value.
func (s *HomeworkService) Grade(ctx context.Context, identity models.Identity, submissionID string, req GradeHomeworkRequest) (*models.HomeworkSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if *req.Grade < models.MinHomeworkGrade || *req.Grade > models.MaxHomeworkGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade must be between 0 and 10")
	}

	submission, err := s.repo.FindSubmissionByID(ctx, identity.TenantID, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	if err := s.repo.UpdateGrade(ctx, identity.TenantID, submissionID, *req.Grade, req.Feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	submission.Grade = req.Grade
	submission.Feedback = req.Feedback
	return submission, nil
}

func (s *HomeworkService) requireEnrollment(ctx context.Context, identity models.Identity, studentID, classroomID string) error {
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
