package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// HomeworkHandler exposes teacher and student homework endpoints.
type HomeworkHandler struct {
	homework      *service.HomeworkService
	students      *service.StudentService
	notifications *service.NotificationService
}

// NewHomeworkHandler constructs HomeworkHandler.
func NewHomeworkHandler(homework *service.HomeworkService, students *service.StudentService, notifications *service.NotificationService) *HomeworkHandler {
	return &HomeworkHandler{homework: homework, students: students, notifications: notifications}
}

// Create godoc
// @Summary Create a homework assignment
// @Tags Homework
// @Accept json
// @Produce json
// @Param payload body service.CreateHomeworkRequest true "Homework payload"
// @Success 201 {object} response.Envelope
// @Router /homework [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req service.CreateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	homework, err := h.homework.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.notifications != nil {
		link := fmt.Sprintf("/homework/%s", homework.ID)
		h.notifications.NotifyClassroom(c.Request.Context(), identity, homework.ClassroomID,
			"New homework assigned", homework.Title, &link)
	}
	response.Created(c, homework)
}

// List godoc
// @Summary List homework assignments
// @Tags Homework
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /homework [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	homework, err := h.homework.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homework, nil)
}

// Get godoc
// @Summary Get homework detail
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homework/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	homework, err := h.homework.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homework, nil)
}

// Submissions godoc
// @Summary List homework submissions
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Router /homework/{id}/submissions [get]
func (h *HomeworkHandler) Submissions(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	submissions, err := h.homework.Submissions(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Homework
// @Accept json
// @Produce json
// @Param submissionId path string true "Submission ID"
// @Param payload body service.GradeHomeworkRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /homework/submissions/{submissionId}/grade [put]
func (h *HomeworkHandler) Grade(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req service.GradeHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.homework.Grade(c.Request.Context(), identity, c.Param("submissionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// ListMine godoc
// @Summary List the calling student's homework with per-student state
// @Tags Homework
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/homework [get]
func (h *HomeworkHandler) ListMine(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	homework, err := h.homework.ListForStudent(c.Request.Context(), identity, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, homework, nil)
}

// Submit godoc
// @Summary Submit homework
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Homework ID"
// @Param payload body service.SubmitHomeworkRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /me/homework/{id}/submit [post]
func (h *HomeworkHandler) Submit(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	var req service.SubmitHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.homework.Submit(c.Request.Context(), identity, profile.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}
