package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
)

type TableController struct {
	Registry *services.Registry
}

func NewTableController(registry *services.Registry) *TableController {
	return &TableController{Registry: registry}
}

// CreateTable -> menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber   string  `json:"table_number" binding:"required"`
		Capacity      int     `json:"capacity" binding:"required,gt=0"`
		Location      string  `json:"location"`
		BookMinutes   int     `json:"book_minutes" binding:"gte=0,lte=1440"`
		CancelMinutes int     `json:"cancel_minutes" binding:"gte=0,lte=1440"`
		Deposit       float64 `json:"deposit" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	table, err := tc.Registry.CreateTable(c.Request.Context(), services.TableInput{
		TableNumber:   req.TableNumber,
		Capacity:      req.Capacity,
		Location:      req.Location,
		BookMinutes:   req.BookMinutes,
		CancelMinutes: req.CancelMinutes,
		Deposit:       req.Deposit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> menampilkan seluruh meja beserta status turunan
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Registry.ListTables(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTableByID -> detail satu meja
func (tc *TableController) GetTableByID(c *gin.Context) {
	table, err := tc.Registry.GetTable(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// UpdateTable -> ubah konfigurasi meja (bukan status)
func (tc *TableController) UpdateTable(c *gin.Context) {
	var req struct {
		TableNumber   *string  `json:"table_number"`
		Capacity      *int     `json:"capacity" binding:"omitempty,gt=0"`
		Location      *string  `json:"location"`
		BookMinutes   *int     `json:"book_minutes" binding:"omitempty,gt=0,lte=1440"`
		CancelMinutes *int     `json:"cancel_minutes" binding:"omitempty,gte=0,lte=1440"`
		Deposit       *float64 `json:"deposit" binding:"omitempty,gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	table, err := tc.Registry.UpdateTable(c.Request.Context(), c.Param("table_id"), services.TableUpdate{
		TableNumber:   req.TableNumber,
		Capacity:      req.Capacity,
		Location:      req.Location,
		BookMinutes:   req.BookMinutes,
		CancelMinutes: req.CancelMinutes,
		Deposit:       req.Deposit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// UpdateTableStatus -> staff set occupied / cleaning / available
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required,oneof=occupied cleaning available"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	resource, err := tc.Registry.SetManualStatus(c.Request.Context(), actorFrom(c), c.Param("table_id"), body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table status updated", resource.Table)
}

// DeleteTable -> menghapus meja
func (tc *TableController) DeleteTable(c *gin.Context) {
	id := c.Param("table_id")
	if err := tc.Registry.DeleteTable(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": id})
}
