package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madrasatech/madrasa-api/internal/models"
)

// ClassroomRepository handles persistence of classrooms and enrollments.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns a tenant's classrooms with enrollment counts.
func (r *ClassroomRepository) List(ctx context.Context, tenantID string) ([]models.ClassroomDetail, error) {
	const query = `SELECT c.id, c.tenant_id, c.name, c.level, c.grade, c.teacher_id, c.created_at,
        COUNT(e.id) AS enrollment_count
        FROM classrooms c
        LEFT JOIN enrollments e ON e.classroom_id = c.id
        WHERE c.tenant_id = $1
        GROUP BY c.id
        ORDER BY c.name ASC`
	var classrooms []models.ClassroomDetail
	if err := r.db.SelectContext(ctx, &classrooms, query, tenantID); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}

// FindByID returns one classroom, tenant-scoped.
func (r *ClassroomRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error) {
	const query = `SELECT id, tenant_id, name, level, grade, teacher_id, created_at
        FROM classrooms WHERE tenant_id = $1 AND id = $2`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, tenantID, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// Create persists a new classroom.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classrooms (id, tenant_id, name, level, grade, teacher_id, created_at)
        VALUES (:id, :tenant_id, :name, :level, :grade, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// ListEnrolledStudents returns the students enrolled in a classroom.
func (r *ClassroomRepository) ListEnrolledStudents(ctx context.Context, tenantID, classroomID string) ([]models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM enrollments e
        JOIN student_profiles sp ON sp.id = e.student_id
        JOIN users u ON u.id = sp.user_id
        WHERE e.tenant_id = $1 AND e.classroom_id = $2
        ORDER BY u.name ASC`, studentDetailColumns)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, tenantID, classroomID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}

// CreateEnrollment links a student to a classroom. A duplicate pair surfaces
// as ErrDuplicateKey for the service to treat as a no-op.
func (r *ClassroomRepository) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, classroom_id, student_id, tenant_id, created_at)
        VALUES (:id, :classroom_id, :student_id, :tenant_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return translateUnique(fmt.Errorf("create enrollment: %w", err))
	}
	return nil
}

// DeleteEnrollment removes a student from a classroom.
func (r *ClassroomRepository) DeleteEnrollment(ctx context.Context, tenantID, classroomID, studentID string) error {
	const query = `DELETE FROM enrollments WHERE tenant_id = $1 AND classroom_id = $2 AND student_id = $3`
	if _, err := r.db.ExecContext(ctx, query, tenantID, classroomID, studentID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListClassroomIDsForStudent returns the classrooms a student is enrolled in.
func (r *ClassroomRepository) ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error) {
	const query = `SELECT classroom_id FROM enrollments WHERE tenant_id = $1 AND student_id = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, tenantID, studentID); err != nil {
		return nil, fmt.Errorf("list student classrooms: %w", err)
	}
	return ids, nil
}

// CountByTenant returns the number of classrooms in a tenant.
func (r *ClassroomRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM classrooms WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, fmt.Errorf("count classrooms: %w", err)
	}
	return count, nil
}
