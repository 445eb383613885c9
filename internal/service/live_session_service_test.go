package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type mockSessionRepo struct {
	session       *models.LiveSessionDetail
	sessions      []models.LiveSessionDetail
	created       *models.LiveSession
	attendance    *models.Attendance
	attendanceErr error
}

func (m *mockSessionRepo) List(ctx context.Context, tenantID string) ([]models.LiveSessionDetail, error) {
	return m.sessions, nil
}

func (m *mockSessionRepo) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.LiveSessionDetail, error) {
	return m.sessions, nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, tenantID, id string) (*models.LiveSessionDetail, error) {
	if m.session == nil {
		return nil, sql.ErrNoRows
	}
	return m.session, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.LiveSession) error {
	m.created = session
	return nil
}

func (m *mockSessionRepo) CreateAttendance(ctx context.Context, attendance *models.Attendance) error {
	if m.attendanceErr != nil {
		return m.attendanceErr
	}
	m.attendance = attendance
	return nil
}

func liveSession(now time.Time) *models.LiveSessionDetail {
	return &models.LiveSessionDetail{
		LiveSession: models.LiveSession{
			ID:          "ls-1",
			TenantID:    "t-1",
			ClassroomID: "c-1",
			Title:       "Friday Review",
			StartTime:   now.Add(-10 * time.Minute),
			EndTime:     now.Add(50 * time.Minute),
			StreamURL:   "https://stream.example.com/ls-1",
		},
		ClassroomName: "Grade 8A",
	}
}

func TestLiveSessionServiceCreateRejectsInvertedWindow(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := NewLiveSessionService(repo, &mockEnrollmentRepo{classroom: &models.Classroom{ID: "c-1"}}, nil, zap.NewNop())

	start := time.Now().UTC()
	_, err := svc.Create(context.Background(), teacherIdentity(), CreateLiveSessionRequest{
		ClassroomID: "c-1",
		Title:       "Friday Review",
		StartTime:   start,
		EndTime:     start.Add(-time.Hour),
		StreamURL:   "https://stream.example.com/ls-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestLiveSessionServiceJoinRecordsAttendance(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockSessionRepo{session: liveSession(now)}
	svc := NewLiveSessionService(repo, &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}, nil, zap.NewNop())

	resp, err := svc.Join(context.Background(), teacherIdentity(), "s-1", "ls-1")

	require.NoError(t, err)
	assert.Equal(t, "https://stream.example.com/ls-1", resp.StreamURL)
	assert.Equal(t, models.SessionLive, resp.Session.Status)
	require.NotNil(t, repo.attendance)
	assert.Equal(t, "s-1", repo.attendance.StudentID)
	assert.Equal(t, "ls-1", repo.attendance.LiveSessionID)
}

func TestLiveSessionServiceJoinEndedSession(t *testing.T) {
	now := time.Now().UTC()
	session := liveSession(now)
	session.StartTime = now.Add(-2 * time.Hour)
	session.EndTime = now.Add(-time.Hour)
	repo := &mockSessionRepo{session: session}
	svc := NewLiveSessionService(repo, &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}, nil, zap.NewNop())

	_, err := svc.Join(context.Background(), teacherIdentity(), "s-1", "ls-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.attendance)
}

func TestLiveSessionServiceJoinAgainIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockSessionRepo{session: liveSession(now), attendanceErr: appErrors.ErrDuplicateKey}
	svc := NewLiveSessionService(repo, &mockEnrollmentRepo{classroomIDs: []string{"c-1"}}, nil, zap.NewNop())

	resp, err := svc.Join(context.Background(), teacherIdentity(), "s-1", "ls-1")

	require.NoError(t, err)
	assert.Equal(t, "https://stream.example.com/ls-1", resp.StreamURL)
}

func TestLiveSessionServiceJoinNotEnrolled(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockSessionRepo{session: liveSession(now)}
	svc := NewLiveSessionService(repo, &mockEnrollmentRepo{classroomIDs: []string{"c-9"}}, nil, zap.NewNop())

	_, err := svc.Join(context.Background(), teacherIdentity(), "s-1", "ls-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLiveSessionServiceListDerivesStatus(t *testing.T) {
	now := time.Now().UTC()
	scheduled := liveSession(now)
	scheduled.ID = "ls-2"
	scheduled.StartTime = now.Add(time.Hour)
	scheduled.EndTime = now.Add(2 * time.Hour)
	repo := &mockSessionRepo{sessions: []models.LiveSessionDetail{*liveSession(now), *scheduled}}
	svc := NewLiveSessionService(repo, &mockEnrollmentRepo{}, nil, zap.NewNop())

	sessions, err := svc.List(context.Background(), teacherIdentity())

	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, models.SessionLive, sessions[0].Status)
	assert.Equal(t, models.SessionScheduled, sessions[1].Status)
}
