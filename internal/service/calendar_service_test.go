package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/dto"
	"github.com/madrasatech/madrasa-api/internal/models"
)

type calendarExamStub struct {
	items []models.ExamDetail
	err   error
}

func (s *calendarExamStub) List(ctx context.Context, tenantID string) ([]models.ExamDetail, error) {
	return s.items, s.err
}

func (s *calendarExamStub) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.ExamDetail, error) {
	return s.items, s.err
}

type calendarSessionStub struct {
	items []models.LiveSessionDetail
}

func (s *calendarSessionStub) List(ctx context.Context, tenantID string) ([]models.LiveSessionDetail, error) {
	return s.items, nil
}

func (s *calendarSessionStub) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.LiveSessionDetail, error) {
	return s.items, nil
}

type calendarHomeworkStub struct {
	items []models.HomeworkDetail
}

func (s *calendarHomeworkStub) List(ctx context.Context, tenantID string) ([]models.HomeworkDetail, error) {
	return s.items, nil
}

func (s *calendarHomeworkStub) ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.HomeworkDetail, error) {
	return s.items, nil
}

type calendarEnrollmentStub struct {
	ids []string
}

func (s *calendarEnrollmentStub) ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error) {
	return s.ids, nil
}

func TestCalendarServiceTeacherMergesSorted(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := NewCalendarService(
		&calendarExamStub{items: []models.ExamDetail{
			{Exam: models.Exam{ID: "e-1", ClassroomID: "c-1", Title: "Midterm", StartTime: base.Add(48 * time.Hour), EndTime: base.Add(49 * time.Hour)}},
		}},
		&calendarSessionStub{items: []models.LiveSessionDetail{
			{LiveSession: models.LiveSession{ID: "ls-1", ClassroomID: "c-1", Title: "Review", StartTime: base, EndTime: base.Add(time.Hour)}},
		}},
		&calendarHomeworkStub{items: []models.HomeworkDetail{
			{Homework: models.Homework{ID: "hw-1", ClassroomID: "c-1", Title: "Essay", DueDate: base.Add(24 * time.Hour)}},
		}},
		&calendarEnrollmentStub{},
		zap.NewNop(),
	)

	events, err := svc.Teacher(context.Background(), teacherIdentity())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, dto.CalendarSession, events[0].Kind)
	assert.Equal(t, dto.CalendarHomework, events[1].Kind)
	assert.Equal(t, dto.CalendarExam, events[2].Kind)
	assert.Nil(t, events[1].EndsAt)
	require.NotNil(t, events[2].EndsAt)
}

func TestCalendarServiceDegradesFailedSource(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc := NewCalendarService(
		&calendarExamStub{err: errors.New("db down")},
		&calendarSessionStub{items: []models.LiveSessionDetail{
			{LiveSession: models.LiveSession{ID: "ls-1", Title: "Review", StartTime: base, EndTime: base.Add(time.Hour)}},
		}},
		&calendarHomeworkStub{},
		&calendarEnrollmentStub{},
		zap.NewNop(),
	)

	events, err := svc.Teacher(context.Background(), teacherIdentity())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, dto.CalendarSession, events[0].Kind)
}

func TestCalendarServiceStudentWithoutClassrooms(t *testing.T) {
	svc := NewCalendarService(
		&calendarExamStub{items: []models.ExamDetail{{Exam: models.Exam{ID: "e-1"}}}},
		&calendarSessionStub{},
		&calendarHomeworkStub{},
		&calendarEnrollmentStub{},
		zap.NewNop(),
	)

	events, err := svc.Student(context.Background(), teacherIdentity(), "sp-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}
