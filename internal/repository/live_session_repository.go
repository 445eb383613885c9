package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madrasatech/madrasa-api/internal/models"
)

// LiveSessionRepository handles persistence of live sessions and attendance.
type LiveSessionRepository struct {
	db *sqlx.DB
}

// NewLiveSessionRepository constructs the repository.
func NewLiveSessionRepository(db *sqlx.DB) *LiveSessionRepository {
	return &LiveSessionRepository{db: db}
}

const sessionDetailColumns = `ls.id, ls.tenant_id, ls.classroom_id, ls.teacher_id, ls.title, ls.description,
        ls.start_time, ls.end_time, ls.stream_url, ls.created_at, c.name AS classroom_name`

// List returns a tenant's sessions ordered by start time.
func (r *LiveSessionRepository) List(ctx context.Context, tenantID string) ([]models.LiveSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM live_sessions ls
        JOIN classrooms c ON c.id = ls.classroom_id
        WHERE ls.tenant_id = $1
        ORDER BY ls.start_time ASC`, sessionDetailColumns)
	var sessions []models.LiveSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, tenantID); err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	return sessions, nil
}

// ListByClassrooms returns sessions for the given classrooms.
func (r *LiveSessionRepository) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.LiveSessionDetail, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM live_sessions ls
        JOIN classrooms c ON c.id = ls.classroom_id
        WHERE ls.tenant_id = ? AND ls.classroom_id IN (?)
        ORDER BY ls.start_time ASC`, sessionDetailColumns), tenantID, classroomIDs)
	if err != nil {
		return nil, fmt.Errorf("build session classroom query: %w", err)
	}
	query = r.db.Rebind(query)

	var sessions []models.LiveSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list classroom sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns one session, tenant-scoped.
func (r *LiveSessionRepository) FindByID(ctx context.Context, tenantID, id string) (*models.LiveSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM live_sessions ls
        JOIN classrooms c ON c.id = ls.classroom_id
        WHERE ls.tenant_id = $1 AND ls.id = $2`, sessionDetailColumns)
	var session models.LiveSessionDetail
	if err := r.db.GetContext(ctx, &session, query, tenantID, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create persists a new live session.
func (r *LiveSessionRepository) Create(ctx context.Context, session *models.LiveSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO live_sessions (id, tenant_id, classroom_id, teacher_id, title, description, start_time, end_time, stream_url, created_at)
        VALUES (:id, :tenant_id, :classroom_id, :teacher_id, :title, :description, :start_time, :end_time, :stream_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create live session: %w", err)
	}
	return nil
}

// CreateAttendance records a student joining a session. A repeat join for the
// same (session, student) pair surfaces as ErrDuplicateKey.
func (r *LiveSessionRepository) CreateAttendance(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	const query = `INSERT INTO live_session_attendance (id, live_session_id, student_id, tenant_id, join_time)
        VALUES (:id, :live_session_id, :student_id, :tenant_id, :join_time)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return translateUnique(fmt.Errorf("create attendance: %w", err))
	}
	return nil
}

// CountScheduled returns the number of sessions that have not started yet.
func (r *LiveSessionRepository) CountScheduled(ctx context.Context, tenantID string, now time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM live_sessions WHERE tenant_id = $1 AND start_time > $2`
	if err := r.db.GetContext(ctx, &count, query, tenantID, now); err != nil {
		return 0, fmt.Errorf("count scheduled sessions: %w", err)
	}
	return count, nil
}
