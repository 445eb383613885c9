package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/madrasatech/madrasa-api/api/swagger"
	"github.com/madrasatech/madrasa-api/internal/handler"
	"github.com/madrasatech/madrasa-api/internal/middleware"
	"github.com/madrasatech/madrasa-api/internal/models"
	"github.com/madrasatech/madrasa-api/internal/realtime"
	"github.com/madrasatech/madrasa-api/internal/repository"
	"github.com/madrasatech/madrasa-api/internal/service"
	"github.com/madrasatech/madrasa-api/pkg/cache"
	"github.com/madrasatech/madrasa-api/pkg/config"
	"github.com/madrasatech/madrasa-api/pkg/database"
	"github.com/madrasatech/madrasa-api/pkg/logger"
	corsmiddleware "github.com/madrasatech/madrasa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/madrasatech/madrasa-api/pkg/middleware/requestid"
)

// @title Madrasa API
// @version 1.0.0
// @description Education management backend: students, classrooms, exams, homework, live sessions, video lessons and notifications.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	examRepo := repository.NewExamRepository(db)
	homeworkRepo := repository.NewHomeworkRepository(db)
	sessionRepo := repository.NewLiveSessionRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, studentRepo, validate, logr)
	examSvc := service.NewExamService(examRepo, classroomRepo, validate, logr)
	homeworkSvc := service.NewHomeworkService(homeworkRepo, classroomRepo, validate, logr)
	sessionSvc := service.NewLiveSessionService(sessionRepo, classroomRepo, validate, logr)
	videoSvc := service.NewVideoService(videoRepo, classroomRepo, validate, logr)

	hub := realtime.NewHub(logr, cfg.Realtime.SendBufferSize)
	hub.SetObserver(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	var publisher *realtime.Hub
	if cfg.Realtime.Enabled {
		publisher = hub
	}
	notificationSvc := service.NewNotificationService(notificationRepo, classroomRepo, publisher, validate, logr, cfg.Notifications.ListLimit)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students:   studentRepo,
		Classrooms: classroomRepo,
		Exams:      examRepo,
		Sessions:   sessionRepo,
		Homework:   homeworkSvc,
		ExamList:   examSvc,
		SessionsBy: sessionSvc,
		Cache:      cacheSvc,
		Logger:     logr,
		CacheTTL:   cfg.Dashboard.CacheTTL,
	})
	calendarSvc := service.NewCalendarService(examRepo, sessionRepo, homeworkRepo, classroomRepo, logr)
	exportSvc := service.NewExportService(examRepo, homeworkRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	examHandler := handler.NewExamHandler(examSvc, studentSvc, notificationSvc, dashboardSvc)
	homeworkHandler := handler.NewHomeworkHandler(homeworkSvc, studentSvc, notificationSvc)
	sessionHandler := handler.NewLiveSessionHandler(sessionSvc, studentSvc, notificationSvc, dashboardSvc)
	videoHandler := handler.NewVideoHandler(videoSvc, studentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, studentSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc, studentSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	realtimeHandler := handler.NewRealtimeHandler(hub, authSvc, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/student-login", authHandler.StudentLogin)
		auth.POST("/refresh", authHandler.Refresh)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/notifications", notificationHandler.List)
		authed.GET("/notifications/unread", notificationHandler.UnreadCount)
		authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		authed.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	// The websocket endpoint validates its own token: browsers cannot set
	// an Authorization header on the upgrade request.
	api.GET("/ws", realtimeHandler.Stream)

	teacher := api.Group("")
	teacher.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/students", studentHandler.List)
		teacher.GET("/students/:id", studentHandler.Get)
		teacher.POST("/students", studentHandler.Provision)
		teacher.GET("/students/code/:code", studentHandler.FindByCode)

		teacher.GET("/classrooms", classroomHandler.List)
		teacher.GET("/classrooms/:id", classroomHandler.Get)
		teacher.POST("/classrooms", classroomHandler.Create)
		teacher.GET("/classrooms/:id/students", classroomHandler.Students)
		teacher.POST("/classrooms/:id/students/:studentId", classroomHandler.Enroll)
		teacher.DELETE("/classrooms/:id/students/:studentId", classroomHandler.Unenroll)

		teacher.POST("/exams", examHandler.Create)
		teacher.GET("/exams", examHandler.List)
		teacher.GET("/exams/:id", examHandler.Get)
		teacher.GET("/exams/:id/questions", examHandler.Questions)
		teacher.GET("/exams/:id/submissions", examHandler.Submissions)
		teacher.GET("/exams/:id/export", exportHandler.ExamResults)

		teacher.POST("/homework", homeworkHandler.Create)
		teacher.GET("/homework", homeworkHandler.List)
		teacher.GET("/homework/:id", homeworkHandler.Get)
		teacher.GET("/homework/:id/submissions", homeworkHandler.Submissions)
		teacher.GET("/homework/:id/export", exportHandler.HomeworkSubmissions)
		teacher.PUT("/homework/submissions/:submissionId/grade", homeworkHandler.Grade)

		teacher.POST("/sessions", sessionHandler.Create)
		teacher.GET("/sessions", sessionHandler.List)
		teacher.GET("/sessions/:id", sessionHandler.Get)

		teacher.POST("/videos", videoHandler.Create)
		teacher.GET("/videos", videoHandler.List)
		teacher.GET("/videos/:id", videoHandler.Get)

		teacher.POST("/notifications", notificationHandler.Create)

		teacher.GET("/dashboard", dashboardHandler.Teacher)
		teacher.GET("/calendar", calendarHandler.Teacher)
	}

	student := api.Group("/me")
	student.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/profile", studentHandler.MyProfile)

		student.GET("/exams", examHandler.ListMine)
		student.GET("/exams/:id", examHandler.Take)
		student.POST("/exams/:id/submit", examHandler.Submit)

		student.GET("/homework", homeworkHandler.ListMine)
		student.POST("/homework/:id/submit", homeworkHandler.Submit)

		student.GET("/sessions", sessionHandler.ListMine)
		student.POST("/sessions/:id/join", sessionHandler.Join)

		student.GET("/videos", videoHandler.ListMine)
		student.PUT("/videos/:id/progress", videoHandler.TrackProgress)
		student.GET("/videos/:id/progress", videoHandler.Progress)

		student.GET("/dashboard", dashboardHandler.Student)
		student.GET("/calendar", calendarHandler.Student)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
