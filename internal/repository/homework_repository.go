package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madrasatech/madrasa-api/internal/models"
)

// HomeworkRepository handles persistence of homework and submissions.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs the repository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

const homeworkDetailColumns = `h.id, h.tenant_id, h.classroom_id, h.title, h.description, h.due_date, h.created_at,
        c.name AS classroom_name`

// List returns a tenant's homework ordered by due date.
func (r *HomeworkRepository) List(ctx context.Context, tenantID string) ([]models.HomeworkDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM homework h
        JOIN classrooms c ON c.id = h.classroom_id
        WHERE h.tenant_id = $1
        ORDER BY h.due_date ASC`, homeworkDetailColumns)
	var homework []models.HomeworkDetail
	if err := r.db.SelectContext(ctx, &homework, query, tenantID); err != nil {
		return nil, fmt.Errorf("list homework: %w", err)
	}
	return homework, nil
}

// ListByClassrooms returns homework visible to the given classrooms.
func (r *HomeworkRepository) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.HomeworkDetail, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM homework h
        JOIN classrooms c ON c.id = h.classroom_id
        WHERE h.tenant_id = ? AND h.classroom_id IN (?)
        ORDER BY h.due_date ASC`, homeworkDetailColumns), tenantID, classroomIDs)
	if err != nil {
		return nil, fmt.Errorf("build homework classroom query: %w", err)
	}
	query = r.db.Rebind(query)

	var homework []models.HomeworkDetail
	if err := r.db.SelectContext(ctx, &homework, query, args...); err != nil {
		return nil, fmt.Errorf("list classroom homework: %w", err)
	}
	return homework, nil
}

// FindByID returns one homework with classroom context, tenant-scoped.
func (r *HomeworkRepository) FindByID(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM homework h
        JOIN classrooms c ON c.id = h.classroom_id
        WHERE h.tenant_id = $1 AND h.id = $2`, homeworkDetailColumns)
	var homework models.HomeworkDetail
	if err := r.db.GetContext(ctx, &homework, query, tenantID, id); err != nil {
		return nil, err
	}
	return &homework, nil
}

// Create persists a new homework.
func (r *HomeworkRepository) Create(ctx context.Context, homework *models.Homework) error {
	if homework.ID == "" {
		homework.ID = uuid.NewString()
	}
	if homework.CreatedAt.IsZero() {
		homework.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO homework (id, tenant_id, classroom_id, title, description, due_date, created_at)
        VALUES (:id, :tenant_id, :classroom_id, :title, :description, :due_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, homework); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// FindSubmission returns the submission of one student for one homework.
func (r *HomeworkRepository) FindSubmission(ctx context.Context, homeworkID, studentID string) (*models.HomeworkSubmission, error) {
	const query = `SELECT id, homework_id, student_id, tenant_id, content, grade, feedback, submitted_at
        FROM homework_submissions WHERE homework_id = $1 AND student_id = $2`
	var submission models.HomeworkSubmission
	if err := r.db.GetContext(ctx, &submission, query, homeworkID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindSubmissionByID returns one submission, tenant-scoped.
func (r *HomeworkRepository) FindSubmissionByID(ctx context.Context, tenantID, id string) (*models.HomeworkSubmission, error) {
	const query = `SELECT id, homework_id, student_id, tenant_id, content, grade, feedback, submitted_at
        FROM homework_submissions WHERE tenant_id = $1 AND id = $2`
	var submission models.HomeworkSubmission
	if err := r.db.GetContext(ctx, &submission, query, tenantID, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// CreateSubmission stores a student's submission. A second submission for the
// same (homework, student) pair surfaces as ErrDuplicateKey.
func (r *HomeworkRepository) CreateSubmission(ctx context.Context, submission *models.HomeworkSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	const query = `INSERT INTO homework_submissions (id, homework_id, student_id, tenant_id, content, grade, feedback, submitted_at)
        VALUES (:id, :homework_id, :student_id, :tenant_id, :content, :grade, :feedback, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return translateUnique(fmt.Errorf("create homework submission: %w", err))
	}
	return nil
}

// ListSubmissionsByStudent returns every submission a student has made.
func (r *HomeworkRepository) ListSubmissionsByStudent(ctx context.Context, tenantID, studentID string) ([]models.HomeworkSubmission, error) {
	const query = `SELECT id, homework_id, student_id, tenant_id, content, grade, feedback, submitted_at
        FROM homework_submissions WHERE tenant_id = $1 AND student_id = $2`
	var submissions []models.HomeworkSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, tenantID, studentID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return submissions, nil
}

// ListSubmissions returns a homework's submissions with student identity,
// ordered by submission time with an id tiebreak for stable reads.
func (r *HomeworkRepository) ListSubmissions(ctx context.Context, tenantID, homeworkID string) ([]models.HomeworkSubmissionDetail, error) {
	const query = `SELECT s.id, s.homework_id, s.student_id, s.tenant_id, s.content, s.grade, s.feedback, s.submitted_at,
        u.name AS student_name, sp.student_code
        FROM homework_submissions s
        JOIN student_profiles sp ON sp.id = s.student_id
        JOIN users u ON u.id = sp.user_id
        WHERE s.tenant_id = $1 AND s.homework_id = $2
        ORDER BY s.submitted_at ASC, s.id ASC`
	var submissions []models.HomeworkSubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, query, tenantID, homeworkID); err != nil {
		return nil, fmt.Errorf("list homework submissions: %w", err)
	}
	return submissions, nil
}

// UpdateGrade sets grade and feedback on a submission. Regrading overwrites.
func (r *HomeworkRepository) UpdateGrade(ctx context.Context, tenantID, submissionID string, grade float64, feedback *string) error {
	const query = `UPDATE homework_submissions SET grade = $3, feedback = $4 WHERE tenant_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, submissionID, grade, feedback); err != nil {
		return fmt.Errorf("grade homework submission: %w", err)
	}
	return nil
}
