package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// LiveSessionHandler exposes live session endpoints.
type LiveSessionHandler struct {
	sessions      *service.LiveSessionService
	students      *service.StudentService
	notifications *service.NotificationService
	dashboards    *service.DashboardService
}

// NewLiveSessionHandler constructs LiveSessionHandler.
func NewLiveSessionHandler(sessions *service.LiveSessionService, students *service.StudentService, notifications *service.NotificationService, dashboards *service.DashboardService) *LiveSessionHandler {
	return &LiveSessionHandler{sessions: sessions, students: students, notifications: notifications, dashboards: dashboards}
}

// Create godoc
// @Summary Schedule a live session
// @Tags LiveSessions
// @Accept json
// @Produce json
// @Param payload body service.CreateLiveSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *LiveSessionHandler) Create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req service.CreateLiveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.notifications != nil {
		link := fmt.Sprintf("/sessions/%s", session.ID)
		h.notifications.NotifyClassroom(c.Request.Context(), identity, session.ClassroomID,
			"Live session scheduled", session.Title, &link)
	}
	if h.dashboards != nil {
		h.dashboards.Invalidate(c.Request.Context(), identity.TenantID)
	}
	response.Created(c, session)
}

// List godoc
// @Summary List live sessions
// @Tags LiveSessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *LiveSessionHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessions, err := h.sessions.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Get godoc
// @Summary Get live session detail
// @Tags LiveSessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *LiveSessionHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ListMine godoc
// @Summary List the calling student's sessions
// @Tags LiveSessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/sessions [get]
func (h *LiveSessionHandler) ListMine(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	sessions, err := h.sessions.ListForStudent(c.Request.Context(), identity, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Join godoc
// @Summary Join a live session
// @Description Records attendance once per student and returns the stream URL
// @Tags LiveSessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /me/sessions/{id}/join [post]
func (h *LiveSessionHandler) Join(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	res, err := h.sessions.Join(c.Request.Context(), identity, profile.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
