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

type mockExamRepo struct {
	exams             []models.ExamDetail
	examByID          *models.ExamDetail
	questions         []models.ExamQuestion
	submission        *models.ExamSubmission
	submissions       []models.ExamSubmissionDetail
	createErr         error
	createdExam       *models.Exam
	createdQuestions  []models.ExamQuestion
	createSubErr      error
	createdSubmission *models.ExamSubmission
}

func (m *mockExamRepo) List(ctx context.Context, tenantID string) ([]models.ExamDetail, error) {
	return m.exams, nil
}

func (m *mockExamRepo) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.ExamDetail, error) {
	return m.exams, nil
}

func (m *mockExamRepo) FindByID(ctx context.Context, tenantID, id string) (*models.ExamDetail, error) {
	if m.examByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.examByID, nil
}

func (m *mockExamRepo) ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error) {
	return m.questions, nil
}

func (m *mockExamRepo) CreateWithQuestions(ctx context.Context, exam *models.Exam, questions []models.ExamQuestion) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdExam = exam
	m.createdQuestions = questions
	return nil
}

func (m *mockExamRepo) FindSubmission(ctx context.Context, examID, studentID string) (*models.ExamSubmission, error) {
	if m.submission == nil {
		return nil, sql.ErrNoRows
	}
	return m.submission, nil
}

func (m *mockExamRepo) CreateSubmission(ctx context.Context, submission *models.ExamSubmission) error {
	if m.createSubErr != nil {
		return m.createSubErr
	}
	m.createdSubmission = submission
	return nil
}

func (m *mockExamRepo) ListSubmissions(ctx context.Context, tenantID, examID string) ([]models.ExamSubmissionDetail, error) {
	return m.submissions, nil
}

type mockEnrollmentRepo struct {
	classroom    *models.Classroom
	classroomIDs []string
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error) {
	if m.classroom == nil {
		return nil, sql.ErrNoRows
	}
	return m.classroom, nil
}

func (m *mockEnrollmentRepo) ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error) {
	return m.classroomIDs, nil
}

func teacherIdentity() models.Identity {
	return models.Identity{UserID: "u-1", TenantID: "t-1", Role: models.RoleTeacher}
}

func activeExam(now time.Time) *models.ExamDetail {
	return &models.ExamDetail{
		Exam: models.Exam{
			ID:          "e-1",
			TenantID:    "t-1",
			ClassroomID: "c-1",
			Title:       "Algebra Midterm",
			StartTime:   now.Add(-time.Hour),
			EndTime:     now.Add(time.Hour),
			TotalMarks:  10,
			Status:      models.ExamStatusPublished,
		},
	}
}

func TestExamServiceCreateDerivesTotalMarks(t *testing.T) {
	repo := &mockExamRepo{}
	classrooms := &mockEnrollmentRepo{classroom: &models.Classroom{ID: "c-1", TenantID: "t-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	start := time.Now().UTC().Add(time.Hour)
	exam, err := svc.Create(context.Background(), teacherIdentity(), CreateExamRequest{
		ClassroomID: "c-1",
		Title:       "Algebra Midterm",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Questions: []ExamQuestionRequest{
			{QuestionText: "2+2?", QuestionType: models.QuestionMCQ, Options: []string{"3", "4"}, CorrectAnswer: "4", Points: 5},
			{QuestionText: "Earth is flat", QuestionType: models.QuestionTrueFalse, CorrectAnswer: "false", Points: 3},
			{QuestionText: "Explain primes", QuestionType: models.QuestionEssay, Points: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, exam.TotalMarks)
	assert.Equal(t, models.ExamStatusPublished, exam.Status)
	require.Len(t, repo.createdQuestions, 3)
}

func TestExamServiceCreateRejectsBadMCQ(t *testing.T) {
	repo := &mockExamRepo{}
	classrooms := &mockEnrollmentRepo{classroom: &models.Classroom{ID: "c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	start := time.Now().UTC()
	_, err := svc.Create(context.Background(), teacherIdentity(), CreateExamRequest{
		ClassroomID: "c-1",
		Title:       "Bad",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Questions: []ExamQuestionRequest{
			{QuestionText: "2+2?", QuestionType: models.QuestionMCQ, Options: []string{"3", "4"}, CorrectAnswer: "5", Points: 5},
		},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExamServiceSubmitScoresAutoGradable(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockExamRepo{
		examByID: activeExam(now),
		questions: []models.ExamQuestion{
			{ID: "q-1", QuestionType: models.QuestionMCQ, CorrectAnswer: "4", Points: 5},
			{ID: "q-2", QuestionType: models.QuestionTrueFalse, CorrectAnswer: "false", Points: 3},
			{ID: "q-3", QuestionType: models.QuestionEssay, Points: 2},
		},
	}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	submission, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "e-1", SubmitExamRequest{
		Answers: map[string]string{"q-1": "4", "q-2": "true", "q-3": "long essay"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, submission.Score)
	require.NotNil(t, repo.createdSubmission)
}

func TestExamServiceSubmitScoringIsExactMatch(t *testing.T) {
	questions := []models.ExamQuestion{
		{ID: "q-1", QuestionType: models.QuestionMCQ, CorrectAnswer: "B", Points: 5},
		{ID: "q-2", QuestionType: models.QuestionTrueFalse, CorrectAnswer: "true", Points: 3},
	}

	// Whitespace and case differences score zero, no normalisation applies.
	assert.Equal(t, 0, scoreAnswers(questions, map[string]string{"q-1": " B", "q-2": "True"}))
	assert.Equal(t, 0, scoreAnswers(questions, map[string]string{"q-1": "B ", "q-2": "TRUE"}))
	assert.Equal(t, 8, scoreAnswers(questions, map[string]string{"q-1": "B", "q-2": "true"}))
}

func TestExamServiceSubmitOutsideWindow(t *testing.T) {
	now := time.Now().UTC()
	exam := activeExam(now)
	exam.EndTime = now.Add(-time.Minute)
	exam.StartTime = now.Add(-2 * time.Hour)
	repo := &mockExamRepo{examByID: exam}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "e-1", SubmitExamRequest{
		Answers: map[string]string{"q-1": "4"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErr.Code)
}

func TestExamServiceSubmitDuplicate(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockExamRepo{examByID: activeExam(now), createSubErr: appErrors.ErrDuplicateKey}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "e-1", SubmitExamRequest{
		Answers: map[string]string{"q-1": "4"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestExamServiceSubmitNotEnrolled(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockExamRepo{examByID: activeExam(now)}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-other"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), teacherIdentity(), "sp-1", "e-1", SubmitExamRequest{
		Answers: map[string]string{"q-1": "4"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestExamServiceStudentViewStripsAnswers(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockExamRepo{
		examByID: activeExam(now),
		questions: []models.ExamQuestion{
			{ID: "q-1", QuestionText: "2+2?", QuestionType: models.QuestionMCQ, Options: models.OptionList{"3", "4"}, CorrectAnswer: "4", Points: 5},
		},
	}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	view, err := svc.StudentView(context.Background(), teacherIdentity(), "sp-1", "e-1")
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, "2+2?", view.Questions[0].QuestionText)
	assert.Equal(t, models.OptionList{"3", "4"}, view.Questions[0].Options)
}

func TestExamServiceStudentViewUpcomingWithholdsQuestions(t *testing.T) {
	now := time.Now().UTC()
	exam := activeExam(now)
	exam.StartTime = now.Add(time.Hour)
	exam.EndTime = now.Add(2 * time.Hour)
	repo := &mockExamRepo{
		examByID:  exam,
		questions: []models.ExamQuestion{{ID: "q-1", QuestionType: models.QuestionMCQ, Points: 5}},
	}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	view, err := svc.StudentView(context.Background(), teacherIdentity(), "sp-1", "e-1")
	require.NoError(t, err)
	assert.Empty(t, view.Questions)
	assert.Equal(t, models.ExamUpcoming, view.Exam.State)
}

func TestExamServiceStudentViewHidesDraft(t *testing.T) {
	now := time.Now().UTC()
	exam := activeExam(now)
	exam.Status = models.ExamStatusDraft
	repo := &mockExamRepo{examByID: exam}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	_, err := svc.StudentView(context.Background(), teacherIdentity(), "sp-1", "e-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExamServiceStudentViewReturnsExistingSubmission(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockExamRepo{
		examByID:   activeExam(now),
		questions:  []models.ExamQuestion{{ID: "q-1", QuestionType: models.QuestionMCQ, Points: 5}},
		submission: &models.ExamSubmission{ID: "sub-1", ExamID: "e-1", StudentID: "sp-1", Score: 5},
	}
	classrooms := &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}
	svc := NewExamService(repo, classrooms, validator.New(), zap.NewNop())

	view, err := svc.StudentView(context.Background(), teacherIdentity(), "sp-1", "e-1")
	require.NoError(t, err)
	require.NotNil(t, view.Submission)
	assert.Empty(t, view.Questions)
}
