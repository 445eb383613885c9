package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// VideoHandler exposes the video lesson library endpoints.
type VideoHandler struct {
	videos   *service.VideoService
	students *service.StudentService
}

// NewVideoHandler constructs VideoHandler.
func NewVideoHandler(videos *service.VideoService, students *service.StudentService) *VideoHandler {
	return &VideoHandler{videos: videos, students: students}
}

// Create godoc
// @Summary Add a video lesson
// @Tags Videos
// @Accept json
// @Produce json
// @Param payload body service.CreateVideoLessonRequest true "Video payload"
// @Success 201 {object} response.Envelope
// @Router /videos [post]
func (h *VideoHandler) Create(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req service.CreateVideoLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	video, err := h.videos.Create(c.Request.Context(), identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, video)
}

// List godoc
// @Summary List video lessons
// @Tags Videos
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	videos, err := h.videos.List(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, videos, nil)
}

// Get godoc
// @Summary Get video lesson detail
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Router /videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	video, err := h.videos.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, video, nil)
}

// ListMine godoc
// @Summary List the calling student's video lessons
// @Tags Videos
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/videos [get]
func (h *VideoHandler) ListMine(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	videos, err := h.videos.ListForStudent(c.Request.Context(), identity, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, videos, nil)
}

// TrackProgress godoc
// @Summary Record watch progress
// @Description Last write wins; watching again overwrites the previous position
// @Tags Videos
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param payload body service.TrackProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Router /me/videos/{id}/progress [put]
func (h *VideoHandler) TrackProgress(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	var req service.TrackProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	progress, err := h.videos.TrackProgress(c.Request.Context(), identity, profile.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// Progress godoc
// @Summary Get the calling student's watch progress
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Router /me/videos/{id}/progress [get]
func (h *VideoHandler) Progress(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	progress, err := h.videos.Progress(c.Request.Context(), identity, profile.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
