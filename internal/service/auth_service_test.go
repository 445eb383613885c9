package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail    *models.User
	userByUsername *models.User
	userByID       *models.User
	createOwnerErr error
	refreshTokens  map[string]*models.RefreshToken
	createdTenant  *models.Tenant
	createdOwner   *models.User
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.userByUsername == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByUsername, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByID, nil
}

func (m *mockAuthRepo) CreateTenantWithOwner(ctx context.Context, tenant *models.Tenant, owner *models.User) error {
	if m.createOwnerErr != nil {
		return m.createOwnerErr
	}
	m.createdTenant = tenant
	m.createdOwner = owner
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "madrasa-api",
	})
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newTestAuthService(repo)

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:       "Ms Huda",
		Email:      "huda@example.com",
		Password:   "password123",
		TenantName: "Huda Academy",
		TenantType: models.TenantCenter,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, repo.createdOwner)
	assert.Equal(t, models.RoleTeacher, repo.createdOwner.Role)
	assert.Equal(t, repo.createdTenant.ID, repo.createdOwner.TenantID)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{createOwnerErr: appErrors.ErrDuplicateKey}
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:       "Ms Huda",
		Email:      "huda@example.com",
		Password:   "password123",
		TenantName: "Huda Academy",
		TenantType: models.TenantCenter,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	email := "teacher@example.com"
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID:           "u-1",
		TenantID:     "t-1",
		Email:        &email,
		PasswordHash: hashPassword(t, "password"),
		Name:         "Teacher",
		Role:         models.RoleTeacher,
	}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: email, Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "u-1", res.User.ID)
	assert.NotEmpty(t, repo.refreshTokens)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	email := "teacher@example.com"
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID:           "u-1",
		Email:        &email,
		PasswordHash: hashPassword(t, "password"),
		Role:         models.RoleTeacher,
	}}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: email, Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginStudentRejectsTeacherUsername(t *testing.T) {
	username := "stu-000001"
	repo := &mockAuthRepo{userByUsername: &models.User{
		ID:           "u-2",
		Username:     &username,
		PasswordHash: hashPassword(t, "password"),
		Role:         models.RoleTeacher,
	}}
	svc := newTestAuthService(repo)

	_, err := svc.LoginStudent(context.Background(), models.StudentLoginRequest{Username: username, Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginStudentSuccess(t *testing.T) {
	username := "stu-000001"
	repo := &mockAuthRepo{userByUsername: &models.User{
		ID:           "u-2",
		TenantID:     "t-1",
		Username:     &username,
		PasswordHash: hashPassword(t, "password"),
		Name:         "Amira",
		Role:         models.RoleStudent,
	}}
	svc := newTestAuthService(repo)

	res, err := svc.LoginStudent(context.Background(), models.StudentLoginRequest{Username: username, Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	user := &models.User{ID: "u-1", TenantID: "t-1", Name: "Teacher", Role: models.RoleTeacher}
	repo := &mockAuthRepo{
		userByID:      user,
		refreshTokens: map[string]*models.RefreshToken{},
	}
	repo.refreshTokens["old-token"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    user.ID,
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := newTestAuthService(repo)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"stale": {
			ID:        "rt-1",
			UserID:    "u-1",
			Token:     "stale",
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		},
	}}
	svc := newTestAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogoutForeignToken(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt-1", UserID: "u-1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newTestAuthService(repo)

	err := svc.Logout(context.Background(), "token", "someone-else")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestValidateToken(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newTestAuthService(repo)
	user := &models.User{ID: "u-1", TenantID: "t-1", Name: "Teacher", Role: models.RoleTeacher}

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.TenantID, claims.TenantID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}
