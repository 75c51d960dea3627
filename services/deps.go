package services

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/notify"
	"gorm.io/gorm"
)

// Deps bundles what the registry, resolver and booking service share.
type Deps struct {
	DB       *gorm.DB
	Clock    Clock
	Notifier notify.Notifier
	Log      logrus.FieldLogger
	Policy   Policy
	Locks    *KeyedLocker
}

// NewDeps fills in defaults for any nil collaborator.
func NewDeps(db *gorm.DB, clock Clock, notifier notify.Notifier, log logrus.FieldLogger, policy Policy) *Deps {
	if clock == nil {
		clock = SystemClock{}
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Deps{
		DB:       db,
		Clock:    clock,
		Notifier: notifier,
		Log:      log,
		Policy:   policy,
		Locks:    NewKeyedLocker(),
	}
}

func (d *Deps) now() time.Time {
	return normalize(d.Clock.Now())
}

// publish sends n through the gate and only logs failures.
func (d *Deps) publish(ctx context.Context, n notify.Notification) {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = d.Clock.Now()
	}
	if err := d.Notifier.Notify(ctx, n); err != nil {
		d.Log.WithError(err).WithFields(logrus.Fields{
			"kind":           n.Kind,
			"reservation_id": n.ReservationID,
			"resource_id":    n.ResourceID,
		}).Warn("notify failed")
	}
}
