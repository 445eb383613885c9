package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madrasatech/madrasa-api/internal/models"
)

// VideoRepository handles persistence of video lessons and view progress.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository constructs the repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoDetailColumns = `v.id, v.tenant_id, v.classroom_id, v.title, v.description, v.video_url,
        v.provider_type, v.created_at, c.name AS classroom_name`

// List returns a tenant's video lessons, newest first.
func (r *VideoRepository) List(ctx context.Context, tenantID string) ([]models.VideoLessonDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM video_lessons v
        JOIN classrooms c ON c.id = v.classroom_id
        WHERE v.tenant_id = $1
        ORDER BY v.created_at DESC`, videoDetailColumns)
	var videos []models.VideoLessonDetail
	if err := r.db.SelectContext(ctx, &videos, query, tenantID); err != nil {
		return nil, fmt.Errorf("list video lessons: %w", err)
	}
	return videos, nil
}

// ListByClassrooms returns lessons for the given classrooms.
func (r *VideoRepository) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.VideoLessonDetail, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM video_lessons v
        JOIN classrooms c ON c.id = v.classroom_id
        WHERE v.tenant_id = ? AND v.classroom_id IN (?)
        ORDER BY v.created_at DESC`, videoDetailColumns), tenantID, classroomIDs)
	if err != nil {
		return nil, fmt.Errorf("build video classroom query: %w", err)
	}
	query = r.db.Rebind(query)

	var videos []models.VideoLessonDetail
	if err := r.db.SelectContext(ctx, &videos, query, args...); err != nil {
		return nil, fmt.Errorf("list classroom videos: %w", err)
	}
	return videos, nil
}

// FindByID returns one lesson, tenant-scoped.
func (r *VideoRepository) FindByID(ctx context.Context, tenantID, id string) (*models.VideoLessonDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM video_lessons v
        JOIN classrooms c ON c.id = v.classroom_id
        WHERE v.tenant_id = $1 AND v.id = $2`, videoDetailColumns)
	var video models.VideoLessonDetail
	if err := r.db.GetContext(ctx, &video, query, tenantID, id); err != nil {
		return nil, err
	}
	return &video, nil
}

// Create persists a new video lesson.
func (r *VideoRepository) Create(ctx context.Context, video *models.VideoLesson) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO video_lessons (id, tenant_id, classroom_id, title, description, video_url, provider_type, created_at)
        VALUES (:id, :tenant_id, :classroom_id, :title, :description, :video_url, :provider_type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, video); err != nil {
		return fmt.Errorf("create video lesson: %w", err)
	}
	return nil
}

// UpsertProgress stores or refreshes a student's watch position for a lesson.
func (r *VideoRepository) UpsertProgress(ctx context.Context, progress *models.ViewProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	if progress.LastUpdated.IsZero() {
		progress.LastUpdated = time.Now().UTC()
	}
	const query = `INSERT INTO video_views (id, video_lesson_id, student_id, watch_seconds, last_updated)
        VALUES (:id, :video_lesson_id, :student_id, :watch_seconds, :last_updated)
        ON CONFLICT (video_lesson_id, student_id)
        DO UPDATE SET watch_seconds = EXCLUDED.watch_seconds, last_updated = EXCLUDED.last_updated`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("upsert view progress: %w", err)
	}
	return nil
}

// FindProgress returns a student's watch position for a lesson.
func (r *VideoRepository) FindProgress(ctx context.Context, videoID, studentID string) (*models.ViewProgress, error) {
	const query = `SELECT id, video_lesson_id, student_id, watch_seconds, last_updated
        FROM video_views WHERE video_lesson_id = $1 AND student_id = $2`
	var progress models.ViewProgress
	if err := r.db.GetContext(ctx, &progress, query, videoID, studentID); err != nil {
		return nil, err
	}
	return &progress, nil
}
