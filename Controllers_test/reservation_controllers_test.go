package Controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-reservation/notify"
)

type reservationBody struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	TableID          string `json:"table_id"`
	Status           string `json:"status"`
	NumPeople        int    `json:"num_people"`
	DurationMinutes  int    `json:"duration_minutes"`
	CancelReason     string `json:"cancel_reason"`
	ConfirmationSent bool   `json:"confirmation_sent"`
}

func TestCreateReservation(t *testing.T) {
	app := setupTestApp(t)
	staffTok := token(t, "staff-1", "staff")
	aliceTok := token(t, "alice", "customer")
	tableID := app.createTable(t, staffTok, "T1", 4)

	w, env := app.createReservation(t, aliceTok, gin.H{
		"table_id":         tableID,
		"reservation_time": evening,
		"num_people":       2,
		"preferences":      gin.H{"seating": "window"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Reservation created", env.Message)

	res := decode[reservationBody](t, env.Data)
	assert.Equal(t, "alice", res.UserID)
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, 90, res.DurationMinutes, "duration falls back to the table's book_minutes")
	assert.Contains(t, app.rec.Kinds(), notify.ReservationCreated)
}

func TestCreateReservation_CustomerCannotBookForOthers(t *testing.T) {
	app := setupTestApp(t)
	tableID := app.createTable(t, token(t, "staff-1", "staff"), "T1", 4)

	w, env := app.createReservation(t, token(t, "alice", "customer"), gin.H{
		"user_id":          "bob",
		"table_id":         tableID,
		"reservation_time": evening,
		"num_people":       2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "alice", decode[reservationBody](t, env.Data).UserID)
}

func TestCreateReservation_Errors(t *testing.T) {
	app := setupTestApp(t)
	staffTok := token(t, "staff-1", "staff")
	aliceTok := token(t, "alice", "customer")
	tableID := app.createTable(t, staffTok, "T1", 4)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{"missing time", gin.H{"table_id": tableID, "num_people": 2}, http.StatusBadRequest},
		{"zero party", gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 0}, http.StatusBadRequest},
		{"no target", gin.H{"reservation_time": evening, "num_people": 2}, http.StatusBadRequest},
		{"both targets", gin.H{"table_id": tableID, "table_group_id": "g", "reservation_time": evening, "num_people": 2}, http.StatusBadRequest},
		{"in the past", gin.H{"table_id": tableID, "reservation_time": "2030-06-01T09:00:00Z", "num_people": 2}, http.StatusBadRequest},
		{"unknown table", gin.H{"table_id": "missing", "reservation_time": evening, "num_people": 2}, http.StatusNotFound},
		{"too many people", gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 6}, http.StatusUnprocessableEntity},
		{"endless stay", gin.H{"table_id": tableID, "reservation_time": evening, "duration_minutes": 200000000, "num_people": 2}, http.StatusBadRequest},
		{"endless hold", gin.H{"table_id": tableID, "reservation_time": evening, "timeout_minutes": 200000000, "num_people": 2}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, env := app.createReservation(t, aliceTok, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			assert.False(t, env.Status)
		})
	}

	w, _ := app.createReservation(t, "", gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 2})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateReservation_Conflict(t *testing.T) {
	app := setupTestApp(t)
	tableID := app.createTable(t, token(t, "staff-1", "staff"), "T1", 4)

	w, env := app.createReservation(t, token(t, "alice", "customer"), gin.H{
		"table_id": tableID, "reservation_time": evening, "duration_minutes": 90, "num_people": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[reservationBody](t, env.Data)

	w, env = app.createReservation(t, token(t, "bob", "customer"), gin.H{
		"table_id": tableID, "reservation_time": "2030-06-01T20:00:00Z", "duration_minutes": 60, "num_people": 2,
	})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	conflict := decode[struct {
		ReservationIDs []string `json:"reservation_ids"`
	}](t, env.Data)
	assert.Equal(t, []string{first.ID}, conflict.ReservationIDs)

	// back-to-back is fine
	w, _ = app.createReservation(t, token(t, "bob", "customer"), gin.H{
		"table_id": tableID, "reservation_time": "2030-06-01T20:30:00Z", "duration_minutes": 60, "num_people": 2,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestReservationLifecycle(t *testing.T) {
	app := setupTestApp(t)
	staffTok := token(t, "staff-1", "staff")
	aliceTok := token(t, "alice", "customer")
	tableID := app.createTable(t, staffTok, "T1", 4)

	_, env := app.createReservation(t, aliceTok, gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 2})
	id := decode[reservationBody](t, env.Data).ID

	// customers cannot confirm
	w, _ := app.do(t, http.MethodPost, "/reservations/"+id+"/confirm", aliceTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = app.do(t, http.MethodPost, "/reservations/"+id+"/confirm", staffTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Reservation confirmed", env.Message)
	confirmed := decode[reservationBody](t, env.Data)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.True(t, confirmed.ConfirmationSent)

	w, env = app.do(t, http.MethodPost, "/reservations/"+id+"/cancel", aliceTok, gin.H{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[reservationBody](t, env.Data)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancelReason)

	// terminal
	w, env = app.do(t, http.MethodPost, "/reservations/"+id+"/cancel", aliceTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "cancelled", decode[struct {
		Status string `json:"status"`
	}](t, env.Data).Status)

	w, env = app.do(t, http.MethodGet, "/reservations/"+id+"/history", aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]struct {
		ToStatus string `json:"to_status"`
	}](t, env.Data)
	require.Len(t, history, 3)
	assert.Equal(t, "cancelled", history[2].ToStatus)

	// the slot is free again
	w, _ = app.createReservation(t, token(t, "bob", "customer"), gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 2})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestReservationAccessControl(t *testing.T) {
	app := setupTestApp(t)
	staffTok := token(t, "staff-1", "staff")
	aliceTok := token(t, "alice", "customer")
	bobTok := token(t, "bob", "customer")
	tableID := app.createTable(t, staffTok, "T1", 4)

	_, env := app.createReservation(t, aliceTok, gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 2})
	id := decode[reservationBody](t, env.Data).ID

	w, _ := app.do(t, http.MethodGet, "/reservations/"+id, bobTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = app.do(t, http.MethodPost, "/reservations/"+id+"/cancel", bobTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = app.do(t, http.MethodGet, "/reservations/"+id, staffTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// the status trail is guarded like the reservation itself
	w, env = app.do(t, http.MethodGet, "/reservations/"+id+"/history", bobTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, string(env.Data), "alice")
	w, _ = app.do(t, http.MethodGet, "/reservations/"+id+"/history", aliceTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = app.do(t, http.MethodGet, "/reservations/"+id+"/history", staffTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// bob's list never shows alice's booking, even if he asks for it
	w, env = app.do(t, http.MethodGet, "/reservations?user_id=alice", bobTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Reservations []reservationBody `json:"reservations"`
		Total        int64             `json:"total"`
	}](t, env.Data)
	assert.Empty(t, page.Reservations)
	assert.Zero(t, page.Total)

	w, env = app.do(t, http.MethodGet, "/reservations?status=pending", staffTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "List of reservations", env.Message)
	page = decode[struct {
		Reservations []reservationBody `json:"reservations"`
		Total        int64             `json:"total"`
	}](t, env.Data)
	assert.EqualValues(t, 1, page.Total)

	w, _ = app.do(t, http.MethodGet, "/reservations?from=yesterday", staffTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRescheduleAndArchive(t *testing.T) {
	app := setupTestApp(t)
	staffTok := token(t, "staff-1", "staff")
	aliceTok := token(t, "alice", "customer")
	tableID := app.createTable(t, staffTok, "T1", 4)

	_, env := app.createReservation(t, aliceTok, gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 2})
	id := decode[reservationBody](t, env.Data).ID

	w, _ := app.do(t, http.MethodPatch, "/reservations/"+id, aliceTok, gin.H{"num_people": 3})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(t, http.MethodPatch, "/reservations/"+id, staffTok, gin.H{"duration_minutes": 200000000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = app.do(t, http.MethodPatch, "/reservations/"+id, staffTok, gin.H{"num_people": 3, "reservation_time": "2030-06-01T20:00:00Z"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[reservationBody](t, env.Data).NumPeople)

	w, _ = app.do(t, http.MethodPatch, "/reservations/"+id, staffTok, gin.H{"num_people": 9})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// only finished bookings can be archived
	w, _ = app.do(t, http.MethodDelete, "/reservations/"+id, staffTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	_, _ = app.do(t, http.MethodPost, "/reservations/"+id+"/cancel", staffTok, nil)
	w, env = app.do(t, http.MethodDelete, "/reservations/"+id, staffTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Reservation archived", env.Message)

	w, _ = app.do(t, http.MethodGet, "/reservations/"+id, staffTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkNoShow(t *testing.T) {
	app := setupTestApp(t)
	staffTok := token(t, "staff-1", "staff")
	tableID := app.createTable(t, staffTok, "T1", 4)

	_, env := app.createReservation(t, token(t, "alice", "customer"), gin.H{"table_id": tableID, "reservation_time": evening, "num_people": 2})
	id := decode[reservationBody](t, env.Data).ID
	_, _ = app.do(t, http.MethodPost, "/reservations/"+id+"/confirm", staffTok, nil)

	w, _ := app.do(t, http.MethodPost, "/reservations/"+id+"/no-show", staffTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "grace period has not passed")

	app.clock.Set(time.Date(2030, 6, 1, 19, 15, 0, 0, time.UTC))
	w, env = app.do(t, http.MethodPost, "/reservations/"+id+"/no-show", staffTok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no_show", decode[reservationBody](t, env.Data).Status)
}
