package services

import (
	"context"
	"time"

	"github.com/yeremiapane/table-reservation/models"
	"gorm.io/gorm"
)

// Resource is either a table or a table group.
type Resource struct {
	Type  string             `json:"type"`
	Table *models.Table      `json:"table,omitempty"`
	Group *models.TableGroup `json:"table_group,omitempty"`
}

func (r Resource) ID() string {
	if r.Table != nil {
		return r.Table.ID
	}
	if r.Group != nil {
		return r.Group.ID
	}
	return ""
}

// Availability is the resolver's answer for one target and window.
type Availability struct {
	Available      bool     `json:"available"`
	ReservationIDs []string `json:"reservation_ids,omitempty"`
	BlockedIDs     []string `json:"blocked_ids,omitempty"`
}

// Err converts a negative answer into a *ConflictError.
func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return &ConflictError{ReservationIDs: a.ReservationIDs, BlockedIDs: a.BlockedIDs}
}

// Resolver answers availability questions. It never writes.
type Resolver struct {
	*Deps
}

func NewResolver(d *Deps) *Resolver {
	return &Resolver{Deps: d}
}

// Check reports whether target is free for [start, start+duration). A zero
// duration falls back to the target's book_minutes.
func (r *Resolver) Check(ctx context.Context, target Target, start time.Time, duration time.Duration) (Availability, error) {
	if start.IsZero() {
		return Availability{}, &ValidationError{Field: "reservation_time", Reason: "is required"}
	}
	if duration < 0 {
		return Availability{}, &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if duration > minutes(MaxMinutes) {
		return Availability{}, &ValidationError{Field: "duration", Reason: "must not exceed 1440 minutes"}
	}
	tx := r.DB.WithContext(ctx)
	rt, err := loadTarget(tx, target)
	if err != nil {
		return Availability{}, err
	}
	if duration == 0 {
		duration = minutes(orDefault(rt.BookMinutes, r.Policy.bookMinutes()))
	}
	start = normalize(start)
	return checkWindow(tx, rt, start, start.Add(duration), "")
}

// checkWindow collects every active claim on any member table that overlaps
// [start, end) plus any manual block. excludeID skips one reservation's own
// claims when rescheduling.
func checkWindow(tx *gorm.DB, rt *resolvedTarget, start, end time.Time, excludeID string) (Availability, error) {
	blocked, err := manualBlocks(tx, rt)
	if err != nil {
		return Availability{}, err
	}

	q := tx.Model(&models.ReservationClaim{}).
		Where("table_id IN ? AND active = ? AND starts_at < ? AND ends_at > ?", rt.tableIDs(), true, end, start)
	if excludeID != "" {
		q = q.Where("reservation_id <> ?", excludeID)
	}
	var claims []models.ReservationClaim
	if err := q.Order("starts_at").Find(&claims).Error; err != nil {
		return Availability{}, err
	}

	var ids []string
	seen := make(map[string]bool)
	for _, c := range claims {
		if !seen[c.ReservationID] {
			seen[c.ReservationID] = true
			ids = append(ids, c.ReservationID)
		}
	}
	return Availability{
		Available:      len(ids) == 0 && len(blocked) == 0,
		ReservationIDs: ids,
		BlockedIDs:     blocked,
	}, nil
}

func manualBlocks(tx *gorm.DB, rt *resolvedTarget) ([]string, error) {
	var blocked []string
	if rt.Group != nil {
		if models.IsManual(rt.Group.ManualStatus) {
			blocked = append(blocked, rt.Group.ID)
		}
		for _, m := range rt.Members {
			if models.IsManual(m.ManualStatus) {
				blocked = append(blocked, m.ID)
			}
		}
		return blocked, nil
	}

	if models.IsManual(rt.Table.ManualStatus) {
		blocked = append(blocked, rt.Table.ID)
	}
	var groups []models.TableGroup
	if err := tx.Where("manual_status <> ?", "").Find(&groups).Error; err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].HasMember(rt.Table.ID) && models.IsManual(groups[i].ManualStatus) {
			blocked = append(blocked, groups[i].ID)
		}
	}
	return blocked, nil
}

// ListAvailableResources returns every table and group that can seat
// partySize for the window starting at at. A zero duration uses each
// resource's own book_minutes.
func (r *Resolver) ListAvailableResources(ctx context.Context, at time.Time, duration time.Duration, partySize int) ([]Resource, error) {
	if at.IsZero() {
		return nil, &ValidationError{Field: "time", Reason: "is required"}
	}
	if partySize <= 0 {
		return nil, &ValidationError{Field: "party_size", Reason: "must be positive"}
	}
	if duration < 0 {
		return nil, &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if duration > minutes(MaxMinutes) {
		return nil, &ValidationError{Field: "duration", Reason: "must not exceed 1440 minutes"}
	}
	at = normalize(at)
	tx := r.DB.WithContext(ctx)

	view, err := loadView(tx, r.now())
	if err != nil {
		return nil, err
	}

	windowOf := func(book int) time.Duration {
		if duration > 0 {
			return duration
		}
		return minutes(orDefault(book, r.Policy.bookMinutes()))
	}
	longest := duration
	for _, t := range view.tables {
		if w := windowOf(t.BookMinutes); w > longest {
			longest = w
		}
	}
	for _, g := range view.groups {
		if w := windowOf(g.BookMinutes); w > longest {
			longest = w
		}
	}

	var claims []models.ReservationClaim
	if err := tx.Where("active = ? AND starts_at < ? AND ends_at > ?", true, at.Add(longest), at).
		Find(&claims).Error; err != nil {
		return nil, err
	}
	busy := func(tableID string, end time.Time) bool {
		for _, c := range claims {
			if c.TableID == tableID && c.StartsAt.Before(end) && c.EndsAt.After(at) {
				return true
			}
		}
		return false
	}

	var out []Resource
	for _, id := range view.order {
		t := view.tables[id]
		if t.Capacity < partySize {
			continue
		}
		if s := view.tableStatus(id); s == models.StatusOccupied || s == models.StatusCleaning {
			continue
		}
		if busy(id, at.Add(windowOf(t.BookMinutes))) {
			continue
		}
		out = append(out, Resource{Type: ResourceTable, Table: t})
	}
	for _, id := range view.gorder {
		g := view.groups[id]
		if g.TotalCapacity < partySize {
			continue
		}
		if s := view.groupStatus(id); s == models.StatusOccupied || s == models.StatusCleaning {
			continue
		}
		end := at.Add(windowOf(g.BookMinutes))
		free := true
		for _, tid := range g.TableIDs {
			if busy(tid, end) {
				free = false
				break
			}
		}
		if free {
			out = append(out, Resource{Type: ResourceTableGroup, Group: g})
		}
	}
	return out, nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
