package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Logger writes every notification to a logrus logger.
type Logger struct {
	Log logrus.FieldLogger
}

func (l Logger) Notify(_ context.Context, n Notification) error {
	l.Log.WithFields(logrus.Fields{
		"kind":           n.Kind,
		"reservation_id": n.ReservationID,
		"resource_id":    n.ResourceID,
		"user_id":        n.UserID,
		"status":         n.Status,
	}).Info("notification")
	return nil
}
