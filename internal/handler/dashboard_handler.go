package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// DashboardHandler exposes the dashboard summary endpoints.
type DashboardHandler struct {
	dashboards *service.DashboardService
	students   *service.StudentService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService, students *service.StudentService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, students: students}
}

// Teacher godoc
// @Summary Tenant-wide dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.dashboards.Teacher(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cache_hit": cacheHit})
}

// Student godoc
// @Summary Calling student's dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/dashboard [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	profile, ok := requireStudentProfile(c, h.students, identity)
	if !ok {
		return
	}
	summary, cacheHit, err := h.dashboards.Student(c.Request.Context(), identity, profile.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cache_hit": cacheHit})
}
