package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type mockClassroomRepo struct {
	classrooms       []models.ClassroomDetail
	classroomByID    *models.Classroom
	created          *models.Classroom
	enrollErr        error
	enrollments      []*models.Enrollment
	deletedStudentID string
}

func (m *mockClassroomRepo) List(ctx context.Context, tenantID string) ([]models.ClassroomDetail, error) {
	return m.classrooms, nil
}

func (m *mockClassroomRepo) FindByID(ctx context.Context, tenantID, id string) (*models.Classroom, error) {
	if m.classroomByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.classroomByID, nil
}

func (m *mockClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	m.created = classroom
	return nil
}

func (m *mockClassroomRepo) ListEnrolledStudents(ctx context.Context, tenantID, classroomID string) ([]models.StudentDetail, error) {
	return nil, nil
}

func (m *mockClassroomRepo) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrollments = append(m.enrollments, enrollment)
	return nil
}

func (m *mockClassroomRepo) DeleteEnrollment(ctx context.Context, tenantID, classroomID, studentID string) error {
	m.deletedStudentID = studentID
	return nil
}

type mockStudentLookup struct {
	student *models.StudentDetail
}

func (m *mockStudentLookup) FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

func TestClassroomServiceCreateAssignsTeacher(t *testing.T) {
	repo := &mockClassroomRepo{}
	svc := NewClassroomService(repo, &mockStudentLookup{}, validator.New(), zap.NewNop())

	classroom, err := svc.Create(context.Background(), teacherIdentity(), CreateClassroomRequest{
		Name:  "Grade 5 Math",
		Grade: "5",
	})
	require.NoError(t, err)
	require.NotNil(t, classroom.TeacherID)
	assert.Equal(t, "u-1", *classroom.TeacherID)
	assert.Equal(t, "t-1", classroom.TenantID)
}

func TestClassroomServiceEnroll(t *testing.T) {
	repo := &mockClassroomRepo{classroomByID: &models.Classroom{ID: "c-1", TenantID: "t-1"}}
	students := &mockStudentLookup{student: &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "sp-1", TenantID: "t-1"},
	}}
	svc := NewClassroomService(repo, students, validator.New(), zap.NewNop())

	err := svc.Enroll(context.Background(), teacherIdentity(), "c-1", "sp-1")
	require.NoError(t, err)
	require.Len(t, repo.enrollments, 1)
	assert.Equal(t, "sp-1", repo.enrollments[0].StudentID)
}

func TestClassroomServiceEnrollTwiceIsNoOp(t *testing.T) {
	repo := &mockClassroomRepo{
		classroomByID: &models.Classroom{ID: "c-1", TenantID: "t-1"},
		enrollErr:     appErrors.ErrDuplicateKey,
	}
	students := &mockStudentLookup{student: &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "sp-1"},
	}}
	svc := NewClassroomService(repo, students, validator.New(), zap.NewNop())

	err := svc.Enroll(context.Background(), teacherIdentity(), "c-1", "sp-1")
	require.NoError(t, err)
}

func TestClassroomServiceEnrollUnknownStudent(t *testing.T) {
	repo := &mockClassroomRepo{classroomByID: &models.Classroom{ID: "c-1"}}
	svc := NewClassroomService(repo, &mockStudentLookup{}, validator.New(), zap.NewNop())

	err := svc.Enroll(context.Background(), teacherIdentity(), "c-1", "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestClassroomServiceUnenrollMissingIsNoOp(t *testing.T) {
	repo := &mockClassroomRepo{classroomByID: &models.Classroom{ID: "c-1"}}
	svc := NewClassroomService(repo, &mockStudentLookup{}, validator.New(), zap.NewNop())

	err := svc.Unenroll(context.Background(), teacherIdentity(), "c-1", "sp-1")
	require.NoError(t, err)
	assert.Equal(t, "sp-1", repo.deletedStudentID)
}
