package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// ClassroomHandler exposes classroom and enrollment endpoints.
type ClassroomHandler struct {
	classrooms *service.ClassroomService
}

// NewClassroomHandler constructs ClassroomHandler.
func NewClassroomHandler(classrooms *service.ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	classrooms, err := h.classrooms.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}

// Get godoc
// @Summary Get classroom detail
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	classroom, err := h.classrooms.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Create godoc
// @Summary Create classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req service.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	classroom, err := h.classrooms.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// Students godoc
// @Summary List enrolled students
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/students [get]
func (h *ClassroomHandler) Students(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	students, err := h.classrooms.Students(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Enroll godoc
// @Summary Enroll a student
// @Description Enrolling an already enrolled student succeeds without change
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param studentId path string true "Student ID"
// @Success 204 "No Content"
// @Router /classrooms/{id}/students/{studentId} [post]
func (h *ClassroomHandler) Enroll(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	if err := h.classrooms.Enroll(c.Request.Context(), identity, c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unenroll godoc
// @Summary Unenroll a student
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param studentId path string true "Student ID"
// @Success 204 "No Content"
// @Router /classrooms/{id}/students/{studentId} [delete]
func (h *ClassroomHandler) Unenroll(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	if err := h.classrooms.Unenroll(c.Request.Context(), identity, c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
