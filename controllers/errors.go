package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
)

// respondServiceError memetakan error dari services ke status HTTP.
func respondServiceError(c *gin.Context, err error) {
	var (
		validation *services.ValidationError
		capacity   *services.CapacityError
		conflict   *services.ConflictError
		notFound   *services.NotFoundError
		transition *services.InvalidTransitionError
		concurrent *services.ConcurrencyError
	)

	switch {
	case errors.As(err, &validation):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.As(err, &capacity):
		utils.RespondErrorData(c, http.StatusUnprocessableEntity, err, gin.H{
			"party_size": capacity.PartySize,
			"capacity":   capacity.Capacity,
		})
	case errors.As(err, &conflict):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{
			"reservation_ids": conflict.ReservationIDs,
			"blocked_ids":     conflict.BlockedIDs,
		})
	case errors.As(err, &notFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.As(err, &transition):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{"status": transition.From})
	case errors.As(err, &concurrent):
		utils.RespondError(c, http.StatusServiceUnavailable, err)
	case errors.Is(err, services.ErrForbidden):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrEmptyGroup):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrDuplicateNumber),
		errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrAlreadyGrouped),
		errors.Is(err, services.ErrActiveReservationExists),
		errors.Is(err, services.ErrNonTerminalReservationExists):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

// respondBindError merangkum error validasi binding menjadi pesan yang ringkas.
func respondBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		utils.RespondError(c, http.StatusBadRequest, errors.New(strings.Join(msgs, "; ")))
		return
	}
	utils.RespondError(c, http.StatusBadRequest, err)
}
