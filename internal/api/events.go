package api

import (
	"questbot/internal/dispatch"

	"github.com/gin-gonic/gin"
)

type eventRoutes struct {
	hub *dispatch.Hub
}

// NewEventRoutes streams the user's notifications over a websocket.
func NewEventRoutes(handler *gin.RouterGroup, hub *dispatch.Hub) {
	r := &eventRoutes{hub: hub}
	handler.GET("/ws", r.handleWebSocket)
}

func (r *eventRoutes) handleWebSocket(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	r.hub.Serve(c.Writer, c.Request, tgUser.ID)
}
