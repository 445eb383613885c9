package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type mockHomeworkRepo struct {
	homework           []models.HomeworkDetail
	homeworkByID       *models.HomeworkDetail
	submissionByID     *models.HomeworkSubmission
	studentSubmissions []models.HomeworkSubmission
	createSubErr       error
	createdSubmission  *models.HomeworkSubmission
	gradedID           string
	gradedValue        float64
	gradedFeedback     *string
}

func (m *mockHomeworkRepo) List(ctx context.Context, tenantID string) ([]models.HomeworkDetail, error) {
	return m.homework, nil
}

func (m *mockHomeworkRepo) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.HomeworkDetail, error) {
	return m.homework, nil
}

func (m *mockHomeworkRepo) FindByID(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error) {
	if m.homeworkByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.homeworkByID, nil
}

func (m *mockHomeworkRepo) Create(ctx context.Context, homework *models.Homework) error {
	return nil
}

func (m *mockHomeworkRepo) FindSubmission(ctx context.Context, homeworkID, studentID string) (*models.HomeworkSubmission, error) {
	return nil, sql.ErrNoRows
}

func (m *mockHomeworkRepo) FindSubmissionByID(ctx context.Context, tenantID, id string) (*models.HomeworkSubmission, error) {
	if m.submissionByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.submissionByID, nil
}

func (m *mockHomeworkRepo) CreateSubmission(ctx context.Context, submission *models.HomeworkSubmission) error {
	if m.createSubErr != nil {
		return m.createSubErr
	}
	m.createdSubmission = submission
	return nil
}

func (m *mockHomeworkRepo) ListSubmissionsByStudent(ctx context.Context, tenantID, studentID string) ([]models.HomeworkSubmission, error) {
	return m.studentSubmissions, nil
}

func (m *mockHomeworkRepo) ListSubmissions(ctx context.Context, tenantID, homeworkID string) ([]models.HomeworkSubmissionDetail, error) {
	return nil, nil
}

func (m *mockHomeworkRepo) UpdateGrade(ctx context.Context, tenantID, submissionID string, grade float64, feedback *string) error {
	m.gradedID = submissionID
	m.gradedValue = grade
	m.gradedFeedback = feedback
	return nil
}

func openHomework(now time.Time) *models.HomeworkDetail {
	return &models.HomeworkDetail{
		Homework: models.Homework{
			ID:          "hw-1",
			TenantID:    "t-1",
			ClassroomID: "c-1",
			Title:       "Essay",
			DueDate:     now.Add(24 * time.Hour),
		},
	}
}

func TestHomeworkServiceSubmit(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockHomeworkRepo{homeworkByID: openHomework(now)}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewHomeworkService(repo, classrooms, validator.New(), zap.NewNop())

	submission, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "hw-1", SubmitHomeworkRequest{Content: "my essay"})
	require.NoError(t, err)
	assert.Equal(t, "my essay", submission.Content)
	assert.Nil(t, submission.Grade)
	require.NotNil(t, repo.createdSubmission)
}

func TestHomeworkServiceSubmitPastDue(t *testing.T) {
	now := time.Now().UTC()
	homework := openHomework(now)
	homework.DueDate = now.Add(-time.Minute)
	repo := &mockHomeworkRepo{homeworkByID: homework}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewHomeworkService(repo, classrooms, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "hw-1", SubmitHomeworkRequest{Content: "late"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErr.Code)
}

func TestHomeworkServiceSubmitDuplicate(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockHomeworkRepo{homeworkByID: openHomework(now), createSubErr: appErrors.ErrDuplicateKey}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewHomeworkService(repo, classrooms, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "hw-1", SubmitHomeworkRequest{Content: "again"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestHomeworkServiceGrade(t *testing.T) {
	repo := &mockHomeworkRepo{submissionByID: &models.HomeworkSubmission{
		ID:         "sub-1",
		HomeworkID: "hw-1",
		TenantID:   "t-1",
		Content:    "essay",
	}}
	svc := NewHomeworkService(repo, &mockEnrollmentRepo{}, validator.New(), zap.NewNop())

	grade := 8.5
	feedback := "good work"
	submission, err := svc.Grade(context.Background(), teacherIdentity(), "sub-1", GradeHomeworkRequest{Grade: &grade, Feedback: &feedback})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", repo.gradedID)
	assert.Equal(t, 8.5, repo.gradedValue)
	require.NotNil(t, submission.Grade)
	assert.Equal(t, 8.5, *submission.Grade)
}

func TestHomeworkServiceGradeOutOfRange(t *testing.T) {
	repo := &mockHomeworkRepo{submissionByID: &models.HomeworkSubmission{ID: "sub-1"}}
	svc := NewHomeworkService(repo, &mockEnrollmentRepo{}, validator.New(), zap.NewNop())

	grade := 11.0
	_, err := svc.Grade(context.Background(), teacherIdentity(), "sub-1", GradeHomeworkRequest{Grade: &grade})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.gradedID)
}

func TestHomeworkServiceGradeMissingSubmission(t *testing.T) {
	repo := &mockHomeworkRepo{}
	svc := NewHomeworkService(repo, &mockEnrollmentRepo{}, validator.New(), zap.NewNop())

	grade := 7.0
	_, err := svc.Grade(context.Background(), teacherIdentity(), "missing", GradeHomeworkRequest{Grade: &grade})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestHomeworkServiceListForStudentStates(t *testing.T) {
	now := time.Now().UTC()
	grade := 9.0
	repo := &mockHomeworkRepo{
		homework: []models.HomeworkDetail{
			{Homework: models.Homework{ID: "hw-1", DueDate: now.Add(24 * time.Hour)}},
			{Homework: models.Homework{ID: "hw-2", DueDate: now.Add(-24 * time.Hour)}},
			{Homework: models.Homework{ID: "hw-3", DueDate: now.Add(-time.Hour)}},
			{Homework: models.Homework{ID: "hw-4", DueDate: now.Add(-time.Hour)}},
		},
		studentSubmissions: []models.HomeworkSubmission{
			{ID: "sub-3", HomeworkID: "hw-3"},
			{ID: "sub-4", HomeworkID: "hw-4", Grade: &grade},
		},
	}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewHomeworkService(repo, classrooms, validator.New(), zap.NewNop())

	items, err := svc.ListForStudent(context.Background(), teacherIdentity(), "sp-1")
	require.NoError(t, err)
	require.Len(t, items, 4)

	states := map[string]models.HomeworkState{}
	for _, item := range items {
		states[item.ID] = item.State
	}
	assert.Equal(t, models.HomeworkPending, states["hw-1"])
	assert.Equal(t, models.HomeworkOverdue, states["hw-2"])
	assert.Equal(t, models.HomeworkSubmitted, states["hw-3"])
	assert.Equal(t, models.HomeworkGraded, states["hw-4"])
}
