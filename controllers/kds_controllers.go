package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/table-reservation/kds"
	"github.com/yeremiapane/table-reservation/middlewares"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin sudah dibatasi oleh CORS dan token
	},
}

// KDSHandler -> endpoint WebSocket untuk console staff
func KDSHandler(hub *kds.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(middlewares.ContextRole)
		if role == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if role != "staff" && role != "admin" {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		hub.RegisterClient(ws, role)

		// Baca sampai client disconnect
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		hub.UnregisterClient(ws)
	}
}
