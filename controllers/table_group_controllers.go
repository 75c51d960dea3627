package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
)

type TableGroupController struct {
	Registry *services.Registry
}

func NewTableGroupController(registry *services.Registry) *TableGroupController {
	return &TableGroupController{Registry: registry}
}

// CreateGroup -> gabungkan beberapa meja menjadi satu grup
func (gc *TableGroupController) CreateGroup(c *gin.Context) {
	var req struct {
		GroupName        string   `json:"group_name" binding:"required"`
		TableIDs         []string `json:"table_ids"`
		CapacityOverride *int     `json:"capacity_override" binding:"omitempty,gt=0"`
		BookMinutes      int      `json:"book_minutes" binding:"gte=0,lte=1440"`
		CancelMinutes    int      `json:"cancel_minutes" binding:"gte=0,lte=1440"`
		Deposit          float64  `json:"deposit" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := gc.Registry.CreateGroup(c.Request.Context(), services.GroupInput{
		GroupName:        req.GroupName,
		TableIDs:         req.TableIDs,
		CapacityOverride: req.CapacityOverride,
		BookMinutes:      req.BookMinutes,
		CancelMinutes:    req.CancelMinutes,
		Deposit:          req.Deposit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table group created successfully", group)
}

func (gc *TableGroupController) GetAllGroups(c *gin.Context) {
	groups, err := gc.Registry.ListGroups(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of table groups", groups)
}

func (gc *TableGroupController) GetGroupByID(c *gin.Context) {
	group, err := gc.Registry.GetGroup(c.Request.Context(), c.Param("group_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table group detail", group)
}

// UpdateGroup -> ubah nama/kapasitas/konfigurasi; anggota grup tidak bisa diubah
func (gc *TableGroupController) UpdateGroup(c *gin.Context) {
	var req struct {
		GroupName             *string  `json:"group_name"`
		CapacityOverride      *int     `json:"capacity_override" binding:"omitempty,gt=0"`
		ClearCapacityOverride bool     `json:"clear_capacity_override"`
		BookMinutes           *int     `json:"book_minutes" binding:"omitempty,gt=0,lte=1440"`
		CancelMinutes         *int     `json:"cancel_minutes" binding:"omitempty,gte=0,lte=1440"`
		Deposit               *float64 `json:"deposit" binding:"omitempty,gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	group, err := gc.Registry.UpdateGroup(c.Request.Context(), c.Param("group_id"), services.GroupUpdate{
		GroupName:             req.GroupName,
		CapacityOverride:      req.CapacityOverride,
		ClearCapacityOverride: req.ClearCapacityOverride,
		BookMinutes:           req.BookMinutes,
		CancelMinutes:         req.CancelMinutes,
		Deposit:               req.Deposit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table group updated", group)
}

func (gc *TableGroupController) UpdateGroupStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required,oneof=occupied cleaning available"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	resource, err := gc.Registry.SetManualStatus(c.Request.Context(), actorFrom(c), c.Param("group_id"), body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table group status updated", resource.Group)
}

// DissolveGroup -> bubarkan grup; meja anggota tetap ada
func (gc *TableGroupController) DissolveGroup(c *gin.Context) {
	id := c.Param("group_id")
	if err := gc.Registry.DissolveGroup(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table group dissolved", gin.H{"id": id})
}
