package controller

import (
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/websocket"
)

// NotificationController upgrades authenticated clients onto the realtime
// event hub.
type NotificationController struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewNotificationController(hub *websocket.Hub, allowedOrigins []string) *NotificationController {
	return &NotificationController{
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
	}
}

// Connect opens the per-user event stream
// GET /api/v1/ws/notifications
// The token may arrive as ?token= and is never logged.
func (ctrl *NotificationController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	role, _ := middleware.GetUserRole(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, userID, role)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
		"role":    role,
	})
}
