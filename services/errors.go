package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateNumber              = errors.New("table number already exists")
	ErrDuplicateName                = errors.New("table group name already exists")
	ErrAlreadyGrouped               = errors.New("table already belongs to another table group")
	ErrEmptyGroup                   = errors.New("table group needs at least one table")
	ErrActiveReservationExists      = errors.New("a confirmed reservation currently covers this resource")
	ErrNonTerminalReservationExists = errors.New("resource still has pending or confirmed reservations")
	ErrForbidden                    = errors.New("actor is not allowed to perform this action")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// CapacityError is returned when the party does not fit the target.
type CapacityError struct {
	PartySize int
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("party size %d exceeds capacity %d", e.PartySize, e.Capacity)
}

// ConflictError carries the reservations (and manually blocked resources) that
// collide with the requested window.
type ConflictError struct {
	ReservationIDs []string
	BlockedIDs     []string
}

func (e *ConflictError) Error() string {
	var parts []string
	if len(e.ReservationIDs) > 0 {
		parts = append(parts, "overlapping reservations: "+strings.Join(e.ReservationIDs, ", "))
	}
	if len(e.BlockedIDs) > 0 {
		parts = append(parts, "manually blocked: "+strings.Join(e.BlockedIDs, ", "))
	}
	if len(parts) == 0 {
		return "requested window is not available"
	}
	return "requested window is not available (" + strings.Join(parts, "; ") + ")"
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidTransitionError is returned for an illegal state change.
type InvalidTransitionError struct {
	ID     string
	From   string
	Action string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s reservation %s in status %s", e.Action, e.ID, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ConcurrencyError means optimistic-lock retries ran out.
type ConcurrencyError struct {
	ResourceIDs []string
	Attempts    int
}

func (e *ConcurrencyError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("concurrent modification of %s after %d attempts", strings.Join(e.ResourceIDs, ", "), e.Attempts)
	}
	return "concurrent modification of " + strings.Join(e.ResourceIDs, ", ")
}
