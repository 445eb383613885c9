package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/dto"
	"github.com/madrasatech/madrasa-api/internal/models"
)

type studentCounter interface {
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

type classroomCounter interface {
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

type examCounter interface {
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

type sessionCounter interface {
	CountScheduled(ctx context.Context, tenantID string, now time.Time) (int, error)
}

type studentHomeworkLister interface {
	ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.StudentHomework, error)
}

type studentExamLister interface {
	ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.ExamDetail, error)
}

type studentSessionLister interface {
	ListForStudent(ctx context.Context, identity models.Identity, studentID string) ([]models.LiveSessionDetail, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students   studentCounter
	Classrooms classroomCounter
	Exams      examCounter
	Sessions   sessionCounter
	Homework   studentHomeworkLister
	ExamList   studentExamLister
	SessionsBy studentSessionLister
	Cache      *CacheService
	Logger     *zap.Logger
	CacheTTL   time.Duration
}

// DashboardService composes the teacher and student dashboard summaries.
// Every branch is fetched concurrently and degrades to zero on failure, so
// one broken source never blanks the whole dashboard.
type DashboardService struct {
	students   studentCounter
	classrooms classroomCounter
	exams      examCounter
	sessions   sessionCounter
	homework   studentHomeworkLister
	examList   studentExamLister
	sessionsBy studentSessionLister
	cache      *CacheService
	logger     *zap.Logger
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		students:   params.Students,
		classrooms: params.Classrooms,
		exams:      params.Exams,
		sessions:   params.Sessions,
		homework:   params.Homework,
		examList:   params.ExamList,
		sessionsBy: params.SessionsBy,
		cache:      params.Cache,
		logger:     logger,
		cacheTTL:   ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Teacher returns the tenant-wide counters. The second return value reports
// whether the payload came from cache.
func (s *DashboardService) Teacher(ctx context.Context, identity models.Identity) (*dto.DashboardSummary, bool, error) {
	cacheKey := fmt.Sprintf("dash:teacher:%s", identity.TenantID)
	if s.cache.Enabled() {
		var cached dto.DashboardSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary := &dto.DashboardSummary{}
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		summary.Students = s.countOrZero(ctx, "students", func() (int, error) {
			return s.students.CountByTenant(ctx, identity.TenantID)
		})
	}()
	go func() {
		defer wg.Done()
		summary.Classrooms = s.countOrZero(ctx, "classrooms", func() (int, error) {
			return s.classrooms.CountByTenant(ctx, identity.TenantID)
		})
	}()
	go func() {
		defer wg.Done()
		summary.Exams = s.countOrZero(ctx, "exams", func() (int, error) {
			return s.exams.CountByTenant(ctx, identity.TenantID)
		})
	}()
	go func() {
		defer wg.Done()
		summary.LiveSessions = s.countOrZero(ctx, "live_sessions", func() (int, error) {
			return s.sessions.CountScheduled(ctx, identity.TenantID, s.now())
		})
	}()
	wg.Wait()

	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Student returns the per-student counters derived from the student's own
// classrooms.
func (s *DashboardService) Student(ctx context.Context, identity models.Identity, studentID string) (*dto.StudentDashboardSummary, bool, error) {
	cacheKey := fmt.Sprintf("dash:student:%s", studentID)
	if s.cache.Enabled() {
		var cached dto.StudentDashboardSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary := &dto.StudentDashboardSummary{}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		summary.PendingHomework = s.countOrZero(ctx, "pending_homework", func() (int, error) {
			homework, err := s.homework.ListForStudent(ctx, identity, studentID)
			if err != nil {
				return 0, err
			}
			count := 0
			for _, hw := range homework {
				if hw.State == models.HomeworkPending {
					count++
				}
			}
			return count, nil
		})
	}()
	go func() {
		defer wg.Done()
		summary.UpcomingExams = s.countOrZero(ctx, "upcoming_exams", func() (int, error) {
			exams, err := s.examList.ListForStudent(ctx, identity, studentID)
			if err != nil {
				return 0, err
			}
			count := 0
			for _, exam := range exams {
				if exam.State == models.ExamUpcoming || exam.State == models.ExamActive {
					count++
				}
			}
			return count, nil
		})
	}()
	go func() {
		defer wg.Done()
		summary.UpcomingSessions = s.countOrZero(ctx, "upcoming_sessions", func() (int, error) {
			sessions, err := s.sessionsBy.ListForStudent(ctx, identity, studentID)
			if err != nil {
				return 0, err
			}
			count := 0
			for _, session := range sessions {
				if session.Status == models.SessionScheduled || session.Status == models.SessionLive {
					count++
				}
			}
			return count, nil
		})
	}()
	wg.Wait()

	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Invalidate drops the cached summaries of a tenant. Write paths call it
// after mutations that change the counters.
func (s *DashboardService) Invalidate(ctx context.Context, tenantID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dash:teacher:%s", tenantID)); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *DashboardService) countOrZero(_ context.Context, branch string, fetch func() (int, error)) int {
	count, err := fetch()
	if err != nil {
		s.logger.Warn("dashboard branch failed", zap.String("branch", branch), zap.Error(err))
		return 0
	}
	return count
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
