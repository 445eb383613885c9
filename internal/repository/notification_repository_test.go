package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasatech/madrasa-api/internal/models"
)

func newNotificationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestNotificationRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "body", "link", "type", "is_read", "created_at"}).
		AddRow("n-1", "u-1", "New exam", "Algebra was published", nil, models.NotificationInfo, false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("u-1", 50).
		WillReturnRows(rows)

	notifications, err := repo.ListByUser(context.Background(), "u-1", 50)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.False(t, notifications[0].IsRead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadScopedToUser(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs("n-1", "other-user").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.MarkRead(context.Background(), "other-user", "n-1")
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkAllReadIdempotent(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkAllRead(context.Background(), "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, first)

	second, err := repo.MarkAllRead(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newNotificationMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	notification := &models.Notification{UserID: "u-1", Title: "New exam", Body: "Algebra was published", Type: models.NotificationInfo}
	err := repo.Create(context.Background(), notification)
	require.NoError(t, err)
	assert.NotEmpty(t, notification.ID)
	assert.False(t, notification.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
