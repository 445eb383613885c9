package service

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type mockStudentRepo struct {
	students      []models.StudentDetail
	total         int
	studentByID   *models.StudentDetail
	studentByCode *models.StudentDetail
	profile       *models.StudentProfile
	provisionErrs []error
	provisioned   []*models.User
	lastFilter    models.StudentFilter
	lastCode      string
}

func (m *mockStudentRepo) List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.lastFilter = filter
	return m.students, m.total, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	if m.studentByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.studentByID, nil
}

func (m *mockStudentRepo) FindByCode(ctx context.Context, tenantID, code string) (*models.StudentDetail, error) {
	m.lastCode = code
	if m.studentByCode == nil {
		return nil, sql.ErrNoRows
	}
	return m.studentByCode, nil
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, tenantID, userID string) (*models.StudentProfile, error) {
	if m.profile == nil {
		return nil, sql.ErrNoRows
	}
	return m.profile, nil
}

func (m *mockStudentRepo) Provision(ctx context.Context, user *models.User, profile *models.StudentProfile) error {
	if len(m.provisionErrs) > 0 {
		err := m.provisionErrs[0]
		m.provisionErrs = m.provisionErrs[1:]
		if err != nil {
			return err
		}
	}
	m.provisioned = append(m.provisioned, user)
	return nil
}

func TestStudentServiceProvision(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	res, err := svc.Provision(context.Background(), teacherIdentity(), ProvisionStudentRequest{
		Name:  "Amira",
		Grade: "5",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^STU-\d{6}$`), res.Credentials.StudentCode)
	assert.Equal(t, strings.ToLower(res.Credentials.StudentCode), res.Credentials.Username)
	assert.Len(t, res.Credentials.Password, 10)
	assert.Equal(t, "t-1", res.Student.TenantID)

	require.Len(t, repo.provisioned, 1)
	user := repo.provisioned[0]
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(res.Credentials.Password)))
}

func TestStudentServiceProvisionRetriesOnCodeCollision(t *testing.T) {
	repo := &mockStudentRepo{provisionErrs: []error{appErrors.ErrDuplicateKey, nil}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	res, err := svc.Provision(context.Background(), teacherIdentity(), ProvisionStudentRequest{
		Name:  "Amira",
		Grade: "5",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Credentials.StudentCode)
	require.Len(t, repo.provisioned, 1)
}

func TestStudentServiceProvisionExhaustsRetries(t *testing.T) {
	repo := &mockStudentRepo{provisionErrs: []error{
		appErrors.ErrDuplicateKey, appErrors.ErrDuplicateKey, appErrors.ErrDuplicateKey,
	}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Provision(context.Background(), teacherIdentity(), ProvisionStudentRequest{
		Name:  "Amira",
		Grade: "5",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.provisioned)
}

func TestStudentServiceListDefaultsPagination(t *testing.T) {
	repo := &mockStudentRepo{total: 42}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, pagination, err := svc.List(context.Background(), teacherIdentity(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}

func TestStudentServiceFindByCodeNormalises(t *testing.T) {
	repo := &mockStudentRepo{studentByCode: &models.StudentDetail{
		StudentProfile: models.StudentProfile{ID: "sp-1", StudentCode: "STU-000123"},
		Name:           "Amira",
	}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.FindByCode(context.Background(), teacherIdentity(), "  stu-000123 ")
	require.NoError(t, err)
	assert.Equal(t, "STU-000123", repo.lastCode)
	assert.Equal(t, "sp-1", student.ID)
}
