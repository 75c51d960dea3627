package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/models"
	"github.com/yeremiapane/table-reservation/notify"
	"gorm.io/gorm"
)

// transition describes one legal move of the booking state machine.
type transition struct {
	action string
	from   []string
	to     string
	kind   notify.Kind
	reason string
	// check runs inside the transaction against the freshly read row.
	check func(tx *gorm.DB, res *models.Reservation, now time.Time) error
	// noopIfLeft makes a lost race a silent no-op instead of an error.
	noopIfLeft bool
}

func (t transition) allowed(status string) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// ConfirmReservation moves a pending reservation to confirmed.
func (s *BookingService) ConfirmReservation(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	return s.apply(ctx, actor, id, transition{
		action: "confirm",
		from:   []string{models.ReservationPending},
		to:     models.ReservationConfirmed,
		kind:   notify.ReservationConfirmed,
		check: func(_ *gorm.DB, res *models.Reservation, _ time.Time) error {
			if !actor.canActFor(res.UserID) {
				return ErrForbidden
			}
			return nil
		},
	})
}

// CancelReservation frees the resource immediately. Customers may only cancel
// their own bookings.
func (s *BookingService) CancelReservation(ctx context.Context, actor Actor, id, reason string) (*models.Reservation, error) {
	return s.apply(ctx, actor, id, transition{
		action: "cancel",
		from:   []string{models.ReservationPending, models.ReservationConfirmed},
		to:     models.ReservationCancelled,
		kind:   notify.ReservationCancelled,
		reason: reason,
		check: func(_ *gorm.DB, res *models.Reservation, _ time.Time) error {
			if !actor.canActFor(res.UserID) {
				return ErrForbidden
			}
			return nil
		},
	})
}

// Expire cancels a pending reservation whose timeout has passed. It returns
// (nil, nil) when the reservation already left pending.
func (s *BookingService) Expire(ctx context.Context, id string) (*models.Reservation, error) {
	return s.apply(ctx, SystemActor, id, transition{
		action:     "expire",
		from:       []string{models.ReservationPending},
		to:         models.ReservationCancelled,
		kind:       notify.ReservationExpired,
		reason:     models.ReasonExpired,
		noopIfLeft: true,
		check: func(_ *gorm.DB, res *models.Reservation, now time.Time) error {
			if now.Before(res.ExpiresAt) {
				return &InvalidTransitionError{ID: res.ID, From: res.Status, Action: "expire", Reason: "timeout has not elapsed"}
			}
			return nil
		},
	})
}

// MarkNoShow is legal once the grace period after the start has passed.
func (s *BookingService) MarkNoShow(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	return s.apply(ctx, actor, id, transition{
		action: "mark no-show",
		from:   []string{models.ReservationConfirmed},
		to:     models.ReservationNoShow,
		kind:   notify.ReservationNoShow,
		check: func(tx *gorm.DB, res *models.Reservation, now time.Time) error {
			rt, err := loadTarget(tx, targetOf(res))
			if err != nil {
				return err
			}
			due := res.ReservationTime.Add(s.Policy.noShowGrace(rt.CancelMinutes))
			if now.Before(due) {
				return &InvalidTransitionError{ID: res.ID, From: res.Status, Action: "mark no-show", Reason: "grace period has not elapsed"}
			}
			return nil
		},
	})
}

// apply runs one transition as a guarded update on (id, status, version) so
// that of two racing writers exactly one wins.
func (s *BookingService) apply(ctx context.Context, actor Actor, id string, t transition) (*models.Reservation, error) {
	current, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.allowed(current.Status) {
		if t.noopIfLeft {
			return nil, nil
		}
		return nil, &InvalidTransitionError{ID: id, From: current.Status, Action: t.action}
	}
	tracker := s.trackStatus(targetOf(current))

	var res models.Reservation
	skipped := false
	now := s.now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&res, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "reservation", ID: id}
			}
			return err
		}
		if !t.allowed(res.Status) {
			if t.noopIfLeft {
				skipped = true
				return nil
			}
			return &InvalidTransitionError{ID: id, From: res.Status, Action: t.action}
		}
		if t.check != nil {
			if err := t.check(tx, &res, now); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":     t.to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}
		if t.to == models.ReservationConfirmed {
			updates["confirmation_sent"] = true
		}
		if t.reason != "" {
			updates["cancel_reason"] = t.reason
		}
		upd := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ? AND version = ?", id, res.Status, res.Version).
			Updates(updates)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			var latest models.Reservation
			if err := tx.First(&latest, "id = ?", id).Error; err != nil {
				return err
			}
			if t.noopIfLeft {
				skipped = true
				return nil
			}
			return &InvalidTransitionError{ID: id, From: latest.Status, Action: t.action}
		}

		claimUpdates := map[string]interface{}{"status": t.to}
		if models.IsTerminalStatus(t.to) {
			claimUpdates["active"] = false
		}
		if err := tx.Model(&models.ReservationClaim{}).
			Where("reservation_id = ?", id).
			Updates(claimUpdates).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, id, res.Status, t.to, actor, t.reason, now); err != nil {
			return err
		}
		return tx.First(&res, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	if skipped {
		return nil, nil
	}

	s.Log.WithFields(logrus.Fields{
		"reservation_id": id,
		"status":         res.Status,
		"actor":          actor.ID,
	}).Info("reservation " + t.action)
	s.publish(ctx, reservationNote(t.kind, &res))
	tracker.publish(ctx)
	return &res, nil
}
