package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/doccast/doccast/internal/api/handlers"
)

type Deps struct {
	Session *handlers.SessionHandler
	WS      *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/session/start", d.Session.Start)
	r.GET("/session/:session_id", d.Session.Get)
	r.POST("/session/:session_id/cancel", d.Session.Cancel)

	// WebSocket: live pipeline events
	r.GET("/ws/session/:session_id", d.WS.SessionEvents)
}
