package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error)
	FindByCode(ctx context.Context, tenantID, code string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, tenantID, userID string) (*models.StudentProfile, error)
	Provision(ctx context.Context, user *models.User, profile *models.StudentProfile) error
}

// ProvisionStudentRequest holds payload for provisioning a student account.
type ProvisionStudentRequest struct {
	Name        string     `json:"name" validate:"required"`
	Grade       string     `json:"grade" validate:"required"`
	Level       string     `json:"level"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

// StudentCredentials is returned exactly once, at provisioning time. The
// password is never recoverable afterwards.
type StudentCredentials struct {
	StudentCode string `json:"student_code"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// ProvisionStudentResponse pairs the created profile with its credentials.
type ProvisionStudentResponse struct {
	Student     models.StudentDetail `json:"student"`
	Credentials StudentCredentials   `json:"credentials"`
}

// StudentService handles student roster use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students of the caller's tenant with pagination metadata.
func (s *StudentService) List(ctx context.Context, identity models.Identity, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, identity.TenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, identity models.Identity, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, identity.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// ProfileForUser resolves the student profile owned by a user account.
// Student-facing operations use it to translate the caller into a profile id.
func (s *StudentService) ProfileForUser(ctx context.Context, identity models.Identity) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, identity.TenantID, identity.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// Provision creates a student account with generated credentials. The code
// is retried on collision since it is random and unique per tenant.
func (s *StudentService) Provision(ctx context.Context, identity models.Identity, req ProvisionStudentRequest) (*ProvisionStudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	password, err := generatePassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	var user models.User
	var profile models.StudentProfile
	provisioned := false
	for attempt := 0; attempt < 3; attempt++ {
		code, err := generateStudentCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate student code")
		}
		username := strings.ToLower(code)
		user = models.User{
			TenantID:     identity.TenantID,
			Username:     &username,
			PasswordHash: string(hash),
			Name:         req.Name,
			Role:         models.RoleStudent,
		}
		profile = models.StudentProfile{
			TenantID:    identity.TenantID,
			StudentCode: code,
			Grade:       req.Grade,
			Level:       req.Level,
			DateOfBirth: req.DateOfBirth,
		}
		err = s.repo.Provision(ctx, &user, &profile)
		if err == nil {
			provisioned = true
			break
		}
		if errors.Is(err, appErrors.ErrDuplicateKey) {
			s.logger.Warn("student code collision, retrying", zap.String("code", code))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision student")
	}
	if !provisioned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique student code")
	}

	detail := models.StudentDetail{
		StudentProfile: profile,
		Name:           user.Name,
		Username:       user.Username,
	}
	return &ProvisionStudentResponse{
		Student: detail,
		Credentials: StudentCredentials{
			StudentCode: profile.StudentCode,
			Username:    *user.Username,
			Password:    password,
		},
	}, nil
}

// FindByCode looks a student up by the human-readable code.
func (s *StudentService) FindByCode(ctx context.Context, identity models.Identity, code string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByCode(ctx, identity.TenantID, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func generateStudentCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("STU-%06d", n.Int64()), nil
}

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

func generatePassword() (string, error) {
	buf := make([]byte, 10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
