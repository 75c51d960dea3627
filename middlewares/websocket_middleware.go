package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/utils"
)

// WebSocketAuthMiddleware membaca token dari query string karena browser
// tidak bisa mengirim header Authorization saat upgrade.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set(ContextRole, claims.Role)
		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}
