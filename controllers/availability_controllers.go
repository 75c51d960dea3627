package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
)

type AvailabilityController struct {
	Resolver *services.Resolver
}

func NewAvailabilityController(resolver *services.Resolver) *AvailabilityController {
	return &AvailabilityController{Resolver: resolver}
}

type availabilityQuery struct {
	Time         time.Time `form:"time" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Duration     int       `form:"duration" binding:"gte=0,lte=1440"`
	PartySize    int       `form:"party_size" binding:"required,gt=0"`
	TableID      string    `form:"table_id"`
	TableGroupID string    `form:"table_group_id"`
}

// ListAvailable -> semua meja/grup yang muat dan kosong pada jendela waktu tsb
func (ac *AvailabilityController) ListAvailable(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	resources, err := ac.Resolver.ListAvailableResources(c.Request.Context(), q.Time, time.Duration(q.Duration)*time.Minute, q.PartySize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Available resources", resources)
}

// CheckTarget -> cek satu meja atau grup; conflict dikembalikan sebagai data, bukan error
func (ac *AvailabilityController) CheckTarget(c *gin.Context) {
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	target := services.TableTarget(q.TableID)
	if q.TableGroupID != "" {
		target = services.GroupTarget(q.TableGroupID)
	}
	if q.TableID == "" && q.TableGroupID == "" {
		respondServiceError(c, &services.ValidationError{Field: "target", Reason: "is required"})
		return
	}

	result, err := ac.Resolver.Check(c.Request.Context(), target, q.Time, time.Duration(q.Duration)*time.Minute)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Availability", result)
}
