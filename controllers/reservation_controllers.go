package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
	"gorm.io/datatypes"
)

type ReservationController struct {
	Booking *services.BookingService
}

func NewReservationController(booking *services.BookingService) *ReservationController {
	return &ReservationController{Booking: booking}
}

// CreateReservation -> booking meja atau grup meja, status awal pending
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	var req struct {
		UserID          string          `json:"user_id"`
		TableID         string          `json:"table_id"`
		TableGroupID    string          `json:"table_group_id"`
		ReservationTime time.Time       `json:"reservation_time" binding:"required"`
		DurationMinutes int             `json:"duration_minutes" binding:"gte=0,lte=1440"`
		NumPeople       int             `json:"num_people" binding:"required,gt=0"`
		TimeoutMinutes  int             `json:"timeout_minutes" binding:"gte=0,lte=1440"`
		Preferences     json.RawMessage `json:"preferences"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := rc.Booking.CreateReservation(c.Request.Context(), actorFrom(c), services.CreateRequest{
		UserID:          req.UserID,
		TableID:         req.TableID,
		TableGroupID:    req.TableGroupID,
		ReservationTime: req.ReservationTime,
		DurationMinutes: req.DurationMinutes,
		NumPeople:       req.NumPeople,
		TimeoutMinutes:  req.TimeoutMinutes,
		Preferences:     datatypes.JSON(req.Preferences),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation created", res)
}

// GetReservationByID -> customer hanya bisa melihat reservasinya sendiri
func (rc *ReservationController) GetReservationByID(c *gin.Context) {
	res, err := rc.Booking.GetReservation(c.Request.Context(), c.Param("reservation_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	actor := actorFrom(c)
	if !actor.IsStaff() && res.UserID != actor.ID {
		respondServiceError(c, services.ErrForbidden)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation detail", res)
}

// GetAllReservations -> filter status/table/group/user/tanggal + paginasi
func (rc *ReservationController) GetAllReservations(c *gin.Context) {
	filter := services.ReservationFilter{
		Status:       c.Query("status"),
		UserID:       c.Query("user_id"),
		TableID:      c.Query("table_id"),
		TableGroupID: c.Query("table_group_id"),
	}
	var err error
	if filter.From, err = queryTime(c, "from"); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	actor := actorFrom(c)
	if !actor.IsStaff() {
		filter.UserID = actor.ID
	}

	list, total, err := rc.Booking.ListReservations(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", gin.H{
		"reservations": list,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

func (rc *ReservationController) ConfirmReservation(c *gin.Context) {
	res, err := rc.Booking.ConfirmReservation(c.Request.Context(), actorFrom(c), c.Param("reservation_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation confirmed", res)
}

func (rc *ReservationController) CancelReservation(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"max=255"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}
	}

	res, err := rc.Booking.CancelReservation(c.Request.Context(), actorFrom(c), c.Param("reservation_id"), body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", res)
}

func (rc *ReservationController) MarkNoShow(c *gin.Context) {
	res, err := rc.Booking.MarkNoShow(c.Request.Context(), actorFrom(c), c.Param("reservation_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation marked as no-show", res)
}

// RescheduleReservation -> ubah waktu, durasi, atau jumlah orang
func (rc *ReservationController) RescheduleReservation(c *gin.Context) {
	var req struct {
		ReservationTime *time.Time `json:"reservation_time"`
		DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,gt=0,lte=1440"`
		NumPeople       *int       `json:"num_people" binding:"omitempty,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := rc.Booking.Reschedule(c.Request.Context(), actorFrom(c), c.Param("reservation_id"), services.RescheduleRequest{
		ReservationTime: req.ReservationTime,
		DurationMinutes: req.DurationMinutes,
		NumPeople:       req.NumPeople,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation updated", res)
}

func (rc *ReservationController) GetReservationHistory(c *gin.Context) {
	history, err := rc.Booking.History(c.Request.Context(), actorFrom(c), c.Param("reservation_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation history", history)
}

// ArchiveReservation -> soft delete, hanya untuk reservasi yang sudah selesai
func (rc *ReservationController) ArchiveReservation(c *gin.Context) {
	id := c.Param("reservation_id")
	if err := rc.Booking.Archive(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation archived", gin.H{"id": id})
}

func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New(key + " must be an RFC3339 timestamp")
	}
	return &t, nil
}
