package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// CalendarHandler exposes the merged calendar feed.
type CalendarHandler struct {
	calendar *service.CalendarService
	students *service.StudentService
}

// NewCalendarHandler constructs CalendarHandler.
func NewCalendarHandler(calendar *service.CalendarService, students *service.StudentService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, students: students}
}

// Teacher godoc
// @Summary Tenant-wide calendar feed
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Teacher(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	events, err := h.calendar.Teacher(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Student godoc
// @Summary Calling student's calendar feed
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/calendar [get]
func (h *CalendarHandler) Student(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	events, err := h.calendar.Student(c.Request.Context(), identity, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
