// Package queue publishes reservation events to RabbitMQ for downstream
// consumers such as mail or SMS senders.
package queue

import (
	"time"

	"github.com/yeremiapane/table-reservation/notify"
)

// ReservationEvent is the JSON body of every published message.
type ReservationEvent struct {
	Kind          string `json:"kind"`
	ReservationID string `json:"reservation_id,omitempty"`
	ResourceID    string `json:"resource_id,omitempty"`
	ResourceType  string `json:"resource_type,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Status        string `json:"status,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

func eventFrom(n notify.Notification) ReservationEvent {
	at := n.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return ReservationEvent{
		Kind:          string(n.Kind),
		ReservationID: n.ReservationID,
		ResourceID:    n.ResourceID,
		ResourceType:  n.ResourceType,
		UserID:        n.UserID,
		Status:        n.Status,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}
