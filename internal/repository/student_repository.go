package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madrasatech/madrasa-api/internal/models"
)

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `sp.id, sp.user_id, sp.tenant_id, sp.student_code, sp.grade, sp.level, sp.date_of_birth, sp.created_at,
        u.name AS user_name, u.username AS user_username, u.email AS user_email`

// List returns student profiles of a tenant joined with their user accounts.
func (r *StudentRepository) List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM student_profiles sp
JOIN users u ON u.id = sp.user_id
WHERE sp.tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (u.name ILIKE $%d OR sp.student_code ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}
	if filter.Grade != "" {
		base += fmt.Sprintf(" AND sp.grade = $%d", len(args)+1)
		args = append(args, filter.Grade)
	}
	if filter.Level != "" {
		base += fmt.Sprintf(" AND sp.level = $%d", len(args)+1)
		args = append(args, filter.Level)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY u.name ASC, sp.id ASC LIMIT %d OFFSET %d`,
		studentDetailColumns, base, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns one profile with user context, tenant-scoped.
func (r *StudentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles sp
        JOIN users u ON u.id = sp.user_id
        WHERE sp.tenant_id = $1 AND sp.id = $2`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, tenantID, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCode looks a student up by the unique human-readable code.
func (r *StudentRepository) FindByCode(ctx context.Context, tenantID, code string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_profiles sp
        JOIN users u ON u.id = sp.user_id
        WHERE sp.tenant_id = $1 AND sp.student_code = $2`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, tenantID, code); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID resolves the profile owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, tenantID, userID string) (*models.StudentProfile, error) {
	const query = `SELECT id, user_id, tenant_id, student_code, grade, level, date_of_birth, created_at
        FROM student_profiles WHERE tenant_id = $1 AND user_id = $2`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, tenantID, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Provision creates the user account and its student profile atomically.
func (r *StudentRepository) Provision(ctx context.Context, user *models.User, profile *models.StudentProfile) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin provision tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const userQuery = `INSERT INTO users (id, tenant_id, email, username, password_hash, name, role, created_at)
        VALUES (:id, :tenant_id, :email, :username, :password_hash, :name, :role, :created_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return translateUnique(fmt.Errorf("create student user: %w", err))
	}

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.UserID = user.ID
	profile.TenantID = user.TenantID
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const profileQuery = `INSERT INTO student_profiles (id, user_id, tenant_id, student_code, grade, level, date_of_birth, created_at)
        VALUES (:id, :user_id, :tenant_id, :student_code, :grade, :level, :date_of_birth, :created_at)`
	if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		return translateUnique(fmt.Errorf("create student profile: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit provision tx: %w", err)
	}
	return nil
}

// CountByTenant returns the number of student profiles in a tenant.
func (r *StudentRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_profiles WHERE tenant_id = $1`, tenantID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
