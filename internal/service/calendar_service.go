package service

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/dto"
	"github.com/madrasatech/madrasa-api/internal/models"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

type calendarExamRepository interface {
	List(ctx context.Context, tenantID string) ([]models.ExamDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.ExamDetail, error)
}

type calendarSessionRepository interface {
	List(ctx context.Context, tenantID string) ([]models.LiveSessionDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.LiveSessionDetail, error)
}

type calendarHomeworkRepository interface {
	List(ctx context.Context, tenantID string) ([]models.HomeworkDetail, error)
	ListByClassrooms(ctx context.Context, tenantID string, classroomIDs []string) ([]models.HomeworkDetail, error)
}

type calendarEnrollmentRepository interface {
	ListClassroomIDsForStudent(ctx context.Context, tenantID, studentID string) ([]string, error)
}

// CalendarService merges exams, live sessions and homework due dates into one
// chronological feed. Sources are fetched concurrently and each degrades to an
// empty slice on failure.
type CalendarService struct {
	exams       calendarExamRepository
	sessions    calendarSessionRepository
	homework    calendarHomeworkRepository
	enrollments calendarEnrollmentRepository
	logger      *zap.Logger
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(
	exams calendarExamRepository,
	sessions calendarSessionRepository,
	homework calendarHomeworkRepository,
	enrollments calendarEnrollmentRepository,
	logger *zap.Logger,
) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		exams:       exams,
		sessions:    sessions,
		homework:    homework,
		enrollments: enrollments,
		logger:      logger,
	}
}

// Teacher returns every calendar event in the tenant.
func (s *CalendarService) Teacher(ctx context.Context, identity models.Identity) ([]dto.CalendarEvent, error) {
	return s.collect(ctx,
		func() ([]models.ExamDetail, error) { return s.exams.List(ctx, identity.TenantID) },
		func() ([]models.LiveSessionDetail, error) { return s.sessions.List(ctx, identity.TenantID) },
		func() ([]models.HomeworkDetail, error) { return s.homework.List(ctx, identity.TenantID) },
	), nil
}

// Student returns the calendar events of the student's own classrooms.
func (s *CalendarService) Student(ctx context.Context, identity models.Identity, studentID string) ([]dto.CalendarEvent, error) {
	classroomIDs, err := s.enrollments.ListClassroomIDsForStudent(ctx, identity.TenantID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classrooms")
	}
	if len(classroomIDs) == 0 {
		return []dto.CalendarEvent{}, nil
	}
	return s.collect(ctx,
		func() ([]models.ExamDetail, error) {
			return s.exams.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
		},
		func() ([]models.LiveSessionDetail, error) {
			return s.sessions.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
		},
		func() ([]models.HomeworkDetail, error) {
			return s.homework.ListByClassrooms(ctx, identity.TenantID, classroomIDs)
		},
	), nil
}

func (s *CalendarService) collect(
	_ context.Context,
	fetchExams func() ([]models.ExamDetail, error),
	fetchSessions func() ([]models.LiveSessionDetail, error),
	fetchHomework func() ([]models.HomeworkDetail, error),
) []dto.CalendarEvent {
	var (
		wg       sync.WaitGroup
		exams    []models.ExamDetail
		sessions []models.LiveSessionDetail
		homework []models.HomeworkDetail
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		if exams, err = fetchExams(); err != nil {
			s.logger.Warn("calendar exams branch failed", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if sessions, err = fetchSessions(); err != nil {
			s.logger.Warn("calendar sessions branch failed", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if homework, err = fetchHomework(); err != nil {
			s.logger.Warn("calendar homework branch failed", zap.Error(err))
		}
	}()
	wg.Wait()

	events := make([]dto.CalendarEvent, 0, len(exams)+len(sessions)+len(homework))
	for _, exam := range exams {
		end := exam.EndTime
		events = append(events, dto.CalendarEvent{
			ID:          exam.ID,
			Kind:        dto.CalendarExam,
			Title:       exam.Title,
			ClassroomID: exam.ClassroomID,
			StartsAt:    exam.StartTime,
			EndsAt:      &end,
		})
	}
	for _, session := range sessions {
		end := session.EndTime
		events = append(events, dto.CalendarEvent{
			ID:          session.ID,
			Kind:        dto.CalendarSession,
			Title:       session.Title,
			ClassroomID: session.ClassroomID,
			StartsAt:    session.StartTime,
			EndsAt:      &end,
		})
	}
	for _, hw := range homework {
		events = append(events, dto.CalendarEvent{
			ID:          hw.ID,
			Kind:        dto.CalendarHomework,
			Title:       hw.Title,
			ClassroomID: hw.ClassroomID,
			StartsAt:    hw.DueDate,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events
}
