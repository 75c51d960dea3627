package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/middlewares"
	"github.com/yeremiapane/table-reservation/services"
)

// actorFrom membaca identitas yang diset oleh AuthMiddleware.
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		ID:   c.GetString(middlewares.ContextUserID),
		Role: c.GetString(middlewares.ContextRole),
	}
}
