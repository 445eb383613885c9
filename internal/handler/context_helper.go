package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/middleware"
	"github.com/madrasatech/madrasa-api/internal/models"
	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// requireIdentity resolves the caller identity or writes a 401 and returns
// false. Handlers behind the JWT middleware use it as their first step.
func requireIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Identity{}, false
	}
	return identity, true
}

// requireStudentProfile maps the calling user to their student profile.
// Student-facing routes operate on the profile id, never on a caller-supplied
// student id.
func requireStudentProfile(c *gin.Context, students *service.StudentService, identity models.Identity) (*models.StudentProfile, bool) {
	profile, err := students.ProfileForUser(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return profile, true
}
