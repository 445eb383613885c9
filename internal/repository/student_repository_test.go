package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "tenant_id", "student_code", "grade", "level", "date_of_birth", "created_at", "user_name", "user_username", "user_email"}).
		AddRow("sp-1", "u-1", "t-1", "STU-0001", "5", "primary", nil, time.Now(), "Amina", "amina", "amina@example.com")
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.name ASC, sp.id ASC LIMIT 20 OFFSET 0")).
		WithArgs("t-1").
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_profiles sp")).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), "t-1", models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "STU-0001", students[0].StudentCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("u.name ILIKE $2 OR sp.student_code ILIKE $2")).
		WithArgs("t-1", "%ami%", "5").
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM student_profiles sp")).
		WithArgs("t-1", "%ami%", "5").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), "t-1", models.StudentFilter{Search: "ami", Grade: "5"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryProvision(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_profiles").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	user := &models.User{TenantID: "t-1", Name: "Amina", Role: models.RoleStudent, PasswordHash: "hash"}
	profile := &models.StudentProfile{StudentCode: "STU-0001", Grade: "5", Level: "primary"}
	err := repo.Provision(context.Background(), user, profile)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, user.ID, profile.UserID)
	assert.Equal(t, "t-1", profile.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryProvisionDuplicateCode(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_profiles").
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	user := &models.User{TenantID: "t-1", Name: "Amina", Role: models.RoleStudent}
	profile := &models.StudentProfile{StudentCode: "STU-0001"}
	err := repo.Provision(context.Background(), user, profile)
	require.ErrorIs(t, err, appErrors.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
