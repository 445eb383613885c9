package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// ExamHandler exposes teacher and student exam endpoints.
type ExamHandler struct {
	exams         *service.ExamService
	students      *service.StudentService
	notifications *service.NotificationService
	dashboards    *service.DashboardService
}

// NewExamHandler constructs ExamHandler.
func NewExamHandler(exams *service.ExamService, students *service.StudentService, notifications *service.NotificationService, dashboards *service.DashboardService) *ExamHandler {
	return &ExamHandler{exams: exams, students: students, notifications: notifications, dashboards: dashboards}
}

// Create godoc
// @Summary Create an exam with its questions
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.exams.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.notifications != nil {
		link := fmt.Sprintf("/exams/%s", exam.ID)
		h.notifications.NotifyClassroom(c.Request.Context(), identity, exam.ClassroomID,
			"New exam scheduled", exam.Title, &link)
	}
	if h.dashboards != nil {
		h.dashboards.Invalidate(c.Request.Context(), identity.TenantID)
	}
	response.Created(c, exam)
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	exams, err := h.exams.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// Get godoc
// @Summary Get exam detail
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	exam, err := h.exams.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Questions godoc
// @Summary List exam questions with grading data
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/questions [get]
func (h *ExamHandler) Questions(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	questions, err := h.exams.Questions(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// Submissions godoc
// @Summary List exam submissions
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions [get]
func (h *ExamHandler) Submissions(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	submissions, err := h.exams.Submissions(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// ListMine godoc
// @Summary List the calling student's exams
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/exams [get]
func (h *ExamHandler) ListMine(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	exams, err := h.exams.ListForStudent(c.Request.Context(), identity, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// Take godoc
// @Summary Student view of one exam
// @Description Questions appear only while the exam window is open and never include correct answers
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /me/exams/{id} [get]
func (h *ExamHandler) Take(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	view, err := h.exams.StudentView(c.Request.Context(), identity, profile.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Submit godoc
// @Summary Submit exam answers
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body service.SubmitExamRequest true "Answers keyed by question id"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /me/exams/{id}/submit [post]
func (h *ExamHandler) Submit(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	var req service.SubmitExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.exams.Submit(c.Request.Context(), identity, profile.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}
