package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, tenantID string) ([]models.ExamDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.ExamDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.ExamDetail, error)
	ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error)
	CreateWithQuestions(ctx context.Context, exam *models.Exam, questions []models.ExamQuestion) error
	FindSubmission(ctx context.Context, examID, studentID string) (*models.ExamSubmission, error)
	CreateSubmission(ctx context.Context, submission *models.ExamSubmission) error
	ListSubmissions(ctx context.Context, tenantID, examID string) ([]models.ExamSubmissionDetail, error)
}

type examClassroomRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error)
	ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error)
}

// ExamQuestionRequest is one question inside a create payload.
type ExamQuestionRequest struct {
	QuestionText  string              `json:"question_text" validate:"required"`
	QuestionType  models.QuestionType `json:"question_type" validate:"required,oneof=MCQ TrueFalse ShortAnswer Essay"`
	Options       []string            `json:"options"`
	CorrectAnswer string              `json:"correct_answer"`
	Points        int                 `json:"points" validate:"required,gte=1"`
}

// CreateExamRequest holds payload for creating an exam with its questions.
type CreateExamRequest struct {
	ClassroomID     string                `json:"classroom_id" validate:"required"`
	Title           string                `json:"title" validate:"required"`
	Description     string                `json:"description"`
	StartTime       time.Time             `json:"start_time" validate:"required"`
	EndTime         time.Time             `json:"end_time" validate:"required"`
	DurationMinutes int                   `json:"duration_minutes" validate:"gte=0"`
	Status          models.ExamStatus     `json:"status" validate:"omitempty,oneof=draft published"`
	Questions       []ExamQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// SubmitExamRequest carries a student's answers keyed by question id.
type SubmitExamRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

// StudentExamView is the exam shape handed to a student taking it. Grading
// data is stripped from every question.
type StudentExamView struct {
	Exam       models.ExamDetail        `json:"exam"`
	Questions  []models.StudentQuestion `json:"questions"`
	Submission *models.ExamSubmission   `json:"submission,omitempty"`
}

// ExamService handles the exam lifecycle: authoring, taking and grading.
type ExamService struct {
	repo       examRepository
	classrooms examClassroomRepository
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewExamService constructs the exam service.
func NewExamService(repo examRepository, classrooms examClassroomRepository, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, classrooms: classrooms, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new exam and its questions atomically. Total marks are
// derived from question points, never taken from the caller.
func (s *ExamService) Create(ctx context.Context, identity models.Identity, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if req.EndTime.Before(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must not precede start time")
	}
	if err := validateQuestions(req.Questions); err != nil {
		return nil, err
	}

	if _, err := s.classrooms.FindByID(ctx, identity.TenantID, req.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	status := req.Status
	if status == "" {
		status = models.ExamStatusPublished
	}
	totalMarks := 0
	questions := make([]models.ExamQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
		totalMarks += q.Points
		questions = append(questions, models.ExamQuestion{
			QuestionText:  q.QuestionText,
			QuestionType:  q.QuestionType,
			Options:       models.OptionList(q.Options),
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		})
	}

	exam := &models.Exam{
		TenantID:        identity.TenantID,
		ClassroomID:     req.ClassroomID,
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      totalMarks,
		Status:          status,
	}
	if err := s.repo.CreateWithQuestions(ctx, exam, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

func validateQuestions(questions []ExamQuestionRequest) error {
	for i, q := range questions {
		switch q.QuestionType {
		case models.QuestionMCQ:
			if len(q.Options) < 2 {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: MCQ needs at least two options", i+1))
			}
			found := false
			for _, opt := range q.Options {
				if opt == q.CorrectAnswer {
					found = true
					break
				}
			}
			if !found {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: correct answer must be one of the options", i+1))
			}
		case models.QuestionTrueFalse:
			if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: correct answer must be true or false", i+1))
			}
		}
	}
	return nil
}

// List returns the tenant's exams with their derived temporal state.
func (s *ExamService) List(ctx context.Context, identity models.Identity) ([]models.ExamDetail, error) {
	exams, err := s.repo.List(ctx, identity.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	now := s.now()
	for i := range exams {
		exams[i].State = models.ClassifyExam(exams[i].StartTime, exams[i].EndTime, now)
	}
	return exams, nil
}

// ListForStudent returns the published exams of the student's classrooms.
func (s *ExamService) ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.ExamDetail, error) {
	classroomIDs, err := s.classrooms.ListClassroomIDsForStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classrooms")
	}
	exams, err := s.repo.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	now := s.now()
	for i := range exams {
		exams[i].State = models.ClassifyExam(exams[i].StartTime, exams[i].EndTime, now)
	}
	return exams, nil
}

// Get returns one exam with classroom context and derived state.
func (s *ExamService) Get(ctx context.Context, identity models.Identity, id string) (*models.ExamDetail, error) {
	exam, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	exam.State = models.ClassifyExam(exam.StartTime, exam.EndTime, s.now())
	return exam, nil
}

// Questions returns an exam's full questions including grading data. This
// is the teacher-facing view.
func (s *ExamService) Questions(ctx context.Context, identity models.Identity, examID string) ([]models.ExamQuestion, error) {
	if _, err := s.Get(ctx, identity, examID); err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, nil
}

// StudentView returns the exam as presented to a student about to take it.
// Questions are only included while the exam window is open and the correct
// answers never leave the server.
func (s *ExamService) StudentView(ctx context.Context, identity models.Identity, studentID, examID string) (*StudentExamView, error) {
	exam, err := s.Get(ctx, identity, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != models.ExamStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
	}
	if err := s.requireEnrollment(ctx, identity, studentID, exam.ClassroomID); err != nil {
		return nil, err
	}

	view := &StudentExamView{Exam: *exam}

	submission, err := s.repo.FindSubmission(ctx, examID, studentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if submission != nil {
		view.Submission = submission
		return view, nil
	}

	if exam.State != models.ExamActive {
		return view, nil
	}
	questions, err := s.repo.ListQuestions(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	view.Questions = make([]models.StudentQuestion, 0, len(questions))
	for _, q := range questions {
		view.Questions = append(view.Questions, q.ForStudent())
	}
	return view, nil
}

// Submit records a student's answers and grades the auto-gradable questions
// in the same step. Submissions outside the exam window are rejected, and a
// second submission is a conflict regardless of its content.
func (s *ExamService) Submit(ctx context.Context, identity models.Identity, studentID, examID string, req SubmitExamRequest) (*models.ExamSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	exam, err := s.Get(ctx, identity, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != models.ExamStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
	}
	if err := s.requireEnrollment(ctx, identity, studentID, exam.ClassroomID); err != nil {
		return nil, err
	}
	if exam.State != models.ExamActive {
		return nil, appErrors.Clone(appErrors.ErrWindowClosed, "exam window is closed")
	}

	questions, err := s.repo.ListQuestions(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}

	submission := &models.ExamSubmission{
		ExamID:      examID,
		StudentID:   studentID,
		TenantID:    identity.TenantID,
		Answers:     models.AnswerMap(req.Answers),
		Score:       scoreAnswers(questions, req.Answers),
		SubmittedAt: s.now(),
	}
	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "exam already submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}
	return submission, nil
}

// scoreAnswers sums the points of auto-gradable questions whose submitted
// answer equals the stored answer exactly, byte for byte. Unanswered and
// manually graded questions contribute nothing.
func scoreAnswers(questions []models.ExamQuestion, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		if !q.QuestionType.AutoGradable() {
			continue
		}
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		if answer == q.CorrectAnswer {
			score += q.Points
		}
	}
	return score
}

// Submissions returns an exam's submissions with student identity attached.
func (s *ExamService) Submissions(ctx context.Context, identity models.Identity, examID string) ([]models.ExamSubmissionDetail, error) {
	if _, err := s.Get(ctx, identity, examID); err != nil {
		return nil, err
	}
	submissions, err := s.repo.ListSubmissions(ctx, identity.TenantID, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

func (s *ExamService) requireEnrollment(ctx context.Context, identity models.Identity, studentID, classroomID string) error {
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
