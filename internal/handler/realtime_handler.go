package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/madrasatech/madrasa-api/internal/realtime"
	"github.com/madrasatech/madrasa-api/internal/service"
	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// RealtimeHandler upgrades notification stream connections.
type RealtimeHandler struct {
	hub      *realtime.Hub
	auth     *service.AuthService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewRealtimeHandler constructs RealtimeHandler.
func NewRealtimeHandler(hub *realtime.Hub, auth *service.AuthService, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{
		hub:    hub,
		auth:   auth,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream godoc
// @Summary Notification event stream
// @Description Upgrades to a WebSocket pushing notification events for the authenticated user
// @Tags Notifications
// @Param token query string false "Access token, for clients that cannot set headers"
// @Success 101 "Switching Protocols"
// @Router /ws [get]
func (h *RealtimeHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing access token"))
		return
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Serve(conn, claims.UserID)
}
