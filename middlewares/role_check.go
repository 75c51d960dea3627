package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/utils"
)

// RequireRole hanya meloloskan request dengan salah satu role yang diberikan.
// Admin selalu diizinkan.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles)+1)
	for _, r := range roles {
		allowed[r] = true
	}
	allowed["admin"] = true

	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if r, _ := role.(string); !allowed[r] {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access required", strings.Join(roles, " or ")))
			c.Abort()
			return
		}
		c.Next()
	}
}
