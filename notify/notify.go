// Package notify carries reservation and resource events out of the booking core.
// Delivery is fire-and-forget: a failing sink is logged and never undoes a
// committed transition.
package notify

import (
	"context"
	"time"
)

type Kind string

const (
	ReservationCreated     Kind = "reservation_created"
	ReservationConfirmed   Kind = "reservation_confirmed"
	ReservationCancelled   Kind = "reservation_cancelled"
	ReservationExpired     Kind = "reservation_expired"
	ReservationNoShow      Kind = "reservation_no_show"
	ReservationRescheduled Kind = "reservation_rescheduled"
	ResourceStatusChanged  Kind = "resource_status_changed"
)

type Notification struct {
	Kind          Kind      `json:"kind"`
	ReservationID string    `json:"reservation_id,omitempty"`
	ResourceID    string    `json:"resource_id,omitempty"`
	ResourceType  string    `json:"resource_type,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier is the gate every component publishes through.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop drops everything.
var Nop Notifier = NotifierFunc(func(context.Context, Notification) error { return nil })
