package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madrasatech/madrasa-api/internal/models"
)

// ExamRepository handles persistence of exams, questions and submissions.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `e.id, e.tenant_id, e.classroom_id, e.title, e.description, e.start_time, e.end_time,
        e.duration_minutes, e.total_marks, e.status, e.created_at`

// List returns a tenant's exams with classroom name and counters, newest first.
func (r *ExamRepository) List(ctx context.Context, tenantID string) ([]models.ExamDetail, error) {
	query := fmt.Sprintf(`SELECT %s, c.name AS classroom_name,
        (SELECT COUNT(*) FROM exam_questions q WHERE q.exam_id = e.id) AS question_count,
        (SELECT COUNT(*) FROM exam_submissions s WHERE s.exam_id = e.id) AS submission_count
        FROM exams e
        JOIN classrooms c ON c.id = e.classroom_id
        WHERE e.tenant_id = $1
        ORDER BY e.created_at DESC`, examColumns)
	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, tenantID); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// ListByClassrooms returns published exams for the given classrooms.
func (r *ExamRepository) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.ExamDetail, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s, c.name AS classroom_name,
        (SELECT COUNT(*) FROM exam_questions q WHERE q.exam_id = e.id) AS question_count,
        (SELECT COUNT(*) FROM exam_submissions s WHERE s.exam_id = e.id) AS submission_count
        FROM exams e
        JOIN classrooms c ON c.id = e.classroom_id
        WHERE e.tenant_id = ? AND e.status = ? AND e.classroom_id IN (?)
        ORDER BY e.start_time ASC`, examColumns), tenantID, models.ExamStatusPublished, classroomIDs)
	if err != nil {
		return nil, fmt.Errorf("build exam classroom query: %w", err)
	}
	query = r.db.Rebind(query)

	var exams []models.ExamDetail
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list classroom exams: %w", err)
	}
	return exams, nil
}

// FindByID returns one exam with classroom context, tenant-scoped.
func (r *ExamRepository) FindByID(ctx context.Context, tenantID, id string) (*models.ExamDetail, error) {
	query := fmt.Sprintf(`SELECT %s, c.name AS classroom_name,
        (SELECT COUNT(*) FROM exam_questions q WHERE q.exam_id = e.id) AS question_count,
        (SELECT COUNT(*) FROM exam_submissions s WHERE s.exam_id = e.id) AS submission_count
        FROM exams e
        JOIN classrooms c ON c.id = e.classroom_id
        WHERE e.tenant_id = $1 AND e.id = $2`, examColumns)
	var exam models.ExamDetail
	if err := r.db.GetContext(ctx, &exam, query, tenantID, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListQuestions returns an exam's questions in display order.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID string) ([]models.ExamQuestion, error) {
	const query = `SELECT id, exam_id, question_text, question_type, options, correct_answer, points, position
        FROM exam_questions WHERE exam_id = $1 ORDER BY position ASC`
	var questions []models.ExamQuestion
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	return questions, nil
}

// CreateWithQuestions persists an exam and its ordered questions atomically.
func (r *ExamRepository) CreateWithQuestions(ctx context.Context, exam *models.Exam, questions []models.ExamQuestion) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now().UTC()
	}
	const examQuery = `INSERT INTO exams (id, tenant_id, classroom_id, title, description, start_time, end_time, duration_minutes, total_marks, status, created_at)
        VALUES (:id, :tenant_id, :classroom_id, :title, :description, :start_time, :end_time, :duration_minutes, :total_marks, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, examQuery, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}

	const questionQuery = `INSERT INTO exam_questions (id, exam_id, question_text, question_type, options, correct_answer, points, position)
        VALUES (:id, :exam_id, :question_text, :question_type, :options, :correct_answer, :points, :position)`
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		questions[i].ExamID = exam.ID
		questions[i].Position = i + 1
		if _, err := tx.NamedExecContext(ctx, questionQuery, questions[i]); err != nil {
			return fmt.Errorf("create exam question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam tx: %w", err)
	}
	return nil
}

// FindSubmission returns the submission of one student for one exam.
func (r *ExamRepository) FindSubmission(ctx context.Context, examID, studentID string) (*models.ExamSubmission, error) {
	const query = `SELECT id, exam_id, student_id, tenant_id, answers, score, submitted_at
        FROM exam_submissions WHERE exam_id = $1 AND student_id = $2`
	var submission models.ExamSubmission
	if err := r.db.GetContext(ctx, &submission, query, examID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// CreateSubmission stores a submission. A second submission for the same
// (exam, student) pair surfaces as ErrDuplicateKey.
func (r *ExamRepository) CreateSubmission(ctx context.Context, submission *models.ExamSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	const query = `INSERT INTO exam_submissions (id, exam_id, student_id, tenant_id, answers, score, submitted_at)
        VALUES (:id, :exam_id, :student_id, :tenant_id, :answers, :score, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return translateUnique(fmt.Errorf("create exam submission: %w", err))
	}
	return nil
}

// ListSubmissions returns an exam's submissions with student identity,
// ordered by submission time. The id tiebreak keeps the order stable across
// repeated reads.
func (r *ExamRepository) ListSubmissions(ctx context.Context, tenantID, examID string) ([]models.ExamSubmissionDetail, error) {
	const query = `SELECT s.id, s.exam_id, s.student_id, s.tenant_id, s.answers, s.score, s.submitted_at,
        u.name AS student_name, sp.student_code
        FROM exam_submissions s
        JOIN student_profiles sp ON sp.id = s.student_id
        JOIN users u ON u.id = sp.user_id
        WHERE s.tenant_id = $1 AND s.exam_id = $2
        ORDER BY s.submitted_at ASC, s.id ASC`
	var submissions []models.ExamSubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, tenantID, examID); err != nil {
		return nil, fmt.Errorf("list exam submissions: %w", err)
	}
	return submissions, nil
}

// CountByTenant returns the number of exams in a tenant.
func (r *ExamRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM exams WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, fmt.Errorf("count exams: %w", err)
	}
	return count, nil
}
