package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasatech/madrasa-api/internal/models"
)

func newVideoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestVideoRepositoryUpsertProgress(t *testing.T) {
	db, mock, cleanup := newVideoMock(t)
	defer cleanup()
	repo := NewVideoRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (video_lesson_id, student_id)")).
		WithArgs(sqlmock.AnyArg(), "v-1", "sp-1", 120, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	progress := &models.ViewProgress{VideoLessonID: "v-1", StudentID: "sp-1", WatchSeconds: 120}
	err := repo.UpsertProgress(context.Background(), progress)
	require.NoError(t, err)
	assert.NotEmpty(t, progress.ID)
	assert.False(t, progress.LastUpdated.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryUpsertProgressOverwrites(t *testing.T) {
	db, mock, cleanup := newVideoMock(t)
	defer cleanup()
	repo := NewVideoRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (video_lesson_id, student_id)")).
		WithArgs("vv-1", "v-1", "sp-1", 30, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	progress := &models.ViewProgress{ID: "vv-1", VideoLessonID: "v-1", StudentID: "sp-1", WatchSeconds: 30}
	err := repo.UpsertProgress(context.Background(), progress)
	require.NoError(t, err)
	assert.Equal(t, "vv-1", progress.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
