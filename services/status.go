package services

import (
	"context"

	"github.com/yeremiapane/table-reservation/notify"
)

// statusTracker remembers derived statuses before a mutation so that
// resource_status_changed can be published for whatever moved. It reads
// through Deps.DB and must be used outside a transaction.
type statusTracker struct {
	d       *Deps
	targets []Target
	before  map[Target]string
}

func (d *Deps) trackStatus(targets ...Target) *statusTracker {
	st := &statusTracker{d: d}
	view, err := loadView(d.DB, d.now())
	if err != nil {
		d.Log.WithError(err).Warn("status snapshot failed")
		return st
	}
	seen := make(map[Target]bool)
	for _, t := range targets {
		for _, a := range view.affected(t) {
			if !seen[a] {
				seen[a] = true
				st.targets = append(st.targets, a)
			}
		}
	}
	st.before = view.snapshot(st.targets)
	return st
}

func (st *statusTracker) publish(ctx context.Context) {
	if st.before == nil {
		return
	}
	view, err := loadView(st.d.DB, st.d.now())
	if err != nil {
		st.d.Log.WithError(err).Warn("status snapshot failed")
		return
	}
	after := view.snapshot(st.targets)
	for _, t := range st.targets {
		if after[t] == "" || after[t] == st.before[t] {
			continue
		}
		st.d.publish(ctx, notify.Notification{
			Kind:         notify.ResourceStatusChanged,
			ResourceID:   t.ID,
			ResourceType: t.Kind,
			Status:       after[t],
		})
	}
}
