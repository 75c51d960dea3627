package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/models"
	"github.com/yeremiapane/table-reservation/notify"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var activeStatuses = []string{models.ReservationPending, models.ReservationConfirmed}

// BookingService drives reservations through their lifecycle. Every write
// goes through a guarded update so concurrent actors cannot double-apply.
type BookingService struct {
	*Deps
	Resolver *Resolver
}

func NewBookingService(d *Deps) *BookingService {
	return &BookingService{Deps: d, Resolver: NewResolver(d)}
}

type CreateRequest struct {
	UserID          string
	TableID         string
	TableGroupID    string
	ReservationTime time.Time
	DurationMinutes int
	NumPeople       int
	TimeoutMinutes  int
	Preferences     datatypes.JSON
}

func (req CreateRequest) target() (Target, error) {
	table := strings.TrimSpace(req.TableID)
	group := strings.TrimSpace(req.TableGroupID)
	switch {
	case table != "" && group != "":
		return Target{}, &ValidationError{Field: "target", Reason: "must be either a table or a table group, not both"}
	case table != "":
		return TableTarget(table), nil
	case group != "":
		return GroupTarget(group), nil
	}
	return Target{}, &ValidationError{Field: "target", Reason: "is required"}
}

// CreateReservation books target for the requested window. The availability
// check, the insert and the per-table version bump commit together; a lost
// version race is retried and ends in ConflictError for the loser.
func (s *BookingService) CreateReservation(ctx context.Context, actor Actor, req CreateRequest) (*models.Reservation, error) {
	target, err := req.target()
	if err != nil {
		return nil, err
	}
	if req.NumPeople <= 0 {
		return nil, &ValidationError{Field: "num_people", Reason: "must be positive"}
	}
	if req.ReservationTime.IsZero() {
		return nil, &ValidationError{Field: "reservation_time", Reason: "is required"}
	}
	if req.DurationMinutes < 0 {
		return nil, &ValidationError{Field: "duration_minutes", Reason: "must not be negative"}
	}
	if req.TimeoutMinutes < 0 {
		return nil, &ValidationError{Field: "timeout_minutes", Reason: "must not be negative"}
	}
	if err := tooLong("duration_minutes", req.DurationMinutes); err != nil {
		return nil, err
	}
	if err := tooLong("timeout_minutes", req.TimeoutMinutes); err != nil {
		return nil, err
	}
	if normalize(req.ReservationTime).Before(s.now()) {
		return nil, &ValidationError{Field: "reservation_time", Reason: "must not be in the past"}
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" || !actor.IsStaff() {
		userID = actor.ID
	}
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}

	var created *models.Reservation
	err = s.withRetry(func() error {
		res, err := s.tryCreate(ctx, actor, target, userID, req)
		if err == nil {
			created = res
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"reservation_id": created.ID,
		"target":         target.ID,
		"start":          created.ReservationTime,
	}).Info("reservation created")
	s.publish(ctx, reservationNote(notify.ReservationCreated, created))
	return created, nil
}

func (s *BookingService) tryCreate(ctx context.Context, actor Actor, target Target, userID string, req CreateRequest) (*models.Reservation, error) {
	pre, err := loadTarget(s.DB.WithContext(ctx), target)
	if err != nil {
		return nil, err
	}
	unlock := s.Locks.Lock(pre.tableIDs()...)
	defer unlock()
	tracker := s.trackStatus(target)

	now := s.now()
	start := normalize(req.ReservationTime)
	var res models.Reservation

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rt, err := loadTarget(tx, target)
		if err != nil {
			return err
		}
		if req.NumPeople > rt.Capacity {
			return &CapacityError{PartySize: req.NumPeople, Capacity: rt.Capacity}
		}

		duration := orDefault(req.DurationMinutes, orDefault(rt.BookMinutes, s.Policy.bookMinutes()))
		timeout := orDefault(req.TimeoutMinutes, s.Policy.timeoutMinutes())
		end := start.Add(minutes(duration))

		avail, err := checkWindow(tx, rt, start, end, "")
		if err != nil {
			return err
		}
		if err := avail.Err(); err != nil {
			return err
		}

		res = models.Reservation{
			UserID:          userID,
			ReservationTime: start,
			DurationMinutes: duration,
			NumPeople:       req.NumPeople,
			Preferences:     req.Preferences,
			Status:          models.ReservationPending,
			TimeoutMinutes:  timeout,
			ExpiresAt:       now.Add(minutes(timeout)),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if rt.Table != nil {
			id := rt.Table.ID
			res.TableID = &id
		} else {
			id := rt.Group.ID
			res.TableGroupID = &id
		}
		if err := tx.Create(&res).Error; err != nil {
			return err
		}
		if err := writeClaims(tx, &res, rt.tableIDs()); err != nil {
			return err
		}
		if err := writeHistory(tx, res.ID, "", models.ReservationPending, actor, "", now); err != nil {
			return err
		}
		return bumpVersions(tx, rt.versions())
	})
	if err != nil {
		return nil, err
	}
	tracker.publish(ctx)
	return &res, nil
}

type RescheduleRequest struct {
	ReservationTime *time.Time
	DurationMinutes *int
	NumPeople       *int
}

// Reschedule moves a live reservation to a new window or party size. The
// reservation's own claims are ignored while checking the new window.
func (s *BookingService) Reschedule(ctx context.Context, actor Actor, id string, req RescheduleRequest) (*models.Reservation, error) {
	if req.ReservationTime == nil && req.DurationMinutes == nil && req.NumPeople == nil {
		return nil, &ValidationError{Reason: "nothing to change"}
	}
	if req.NumPeople != nil && *req.NumPeople <= 0 {
		return nil, &ValidationError{Field: "num_people", Reason: "must be positive"}
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		return nil, &ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}
	if req.DurationMinutes != nil {
		if err := tooLong("duration_minutes", *req.DurationMinutes); err != nil {
			return nil, err
		}
	}
	if req.ReservationTime != nil && normalize(*req.ReservationTime).Before(s.now()) {
		return nil, &ValidationError{Field: "reservation_time", Reason: "must not be in the past"}
	}

	var out *models.Reservation
	err := s.withRetry(func() error {
		res, err := s.tryReschedule(ctx, actor, id, req)
		if err == nil {
			out = res
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"reservation_id": id, "start": out.ReservationTime}).Info("reservation rescheduled")
	s.publish(ctx, reservationNote(notify.ReservationRescheduled, out))
	return out, nil
}

func (s *BookingService) tryReschedule(ctx context.Context, actor Actor, id string, req RescheduleRequest) (*models.Reservation, error) {
	current, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canActFor(current.UserID) {
		return nil, ErrForbidden
	}
	target := targetOf(current)
	pre, err := loadTarget(s.DB.WithContext(ctx), target)
	if err != nil {
		return nil, err
	}
	unlock := s.Locks.Lock(pre.tableIDs()...)
	defer unlock()
	tracker := s.trackStatus(target)

	now := s.now()
	var res models.Reservation
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&res, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "reservation", ID: id}
			}
			return err
		}
		if res.Status != models.ReservationPending && res.Status != models.ReservationConfirmed {
			return &InvalidTransitionError{ID: id, From: res.Status, Action: "reschedule"}
		}
		rt, err := loadTarget(tx, target)
		if err != nil {
			return err
		}

		start := res.ReservationTime
		if req.ReservationTime != nil {
			start = normalize(*req.ReservationTime)
		}
		duration := res.DurationMinutes
		if req.DurationMinutes != nil {
			duration = *req.DurationMinutes
		}
		party := res.NumPeople
		if req.NumPeople != nil {
			party = *req.NumPeople
		}
		if party > rt.Capacity {
			return &CapacityError{PartySize: party, Capacity: rt.Capacity}
		}
		end := start.Add(minutes(duration))

		avail, err := checkWindow(tx, rt, start, end, id)
		if err != nil {
			return err
		}
		if err := avail.Err(); err != nil {
			return err
		}

		upd := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ? AND version = ?", id, res.Status, res.Version).
			Updates(map[string]interface{}{
				"reservation_time": start,
				"duration_minutes": duration,
				"num_people":       party,
				"version":          gorm.Expr("version + 1"),
				"updated_at":       now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return &ConcurrencyError{ResourceIDs: []string{id}}
		}
		if err := tx.Model(&models.ReservationClaim{}).
			Where("reservation_id = ? AND active = ?", id, true).
			Updates(map[string]interface{}{"starts_at": start, "ends_at": end}).Error; err != nil {
			return err
		}
		if err := writeHistory(tx, id, res.Status, res.Status, actor, "rescheduled", now); err != nil {
			return err
		}
		if err := bumpVersions(tx, rt.versions()); err != nil {
			return err
		}
		return tx.First(&res, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	tracker.publish(ctx)
	return &res, nil
}

func (s *BookingService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := s.DB.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "reservation", ID: id}
		}
		return nil, err
	}
	return &res, nil
}

type ReservationFilter struct {
	Status       string
	UserID       string
	TableID      string
	TableGroupID string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// ListReservations pages through reservations ordered by start time.
func (s *BookingService) ListReservations(ctx context.Context, f ReservationFilter) ([]models.Reservation, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Reservation{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TableID != "" {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.TableGroupID != "" {
		q = q.Where("table_group_id = ?", f.TableGroupID)
	}
	if f.From != nil {
		q = q.Where("reservation_time >= ?", normalize(*f.From))
	}
	if f.To != nil {
		q = q.Where("reservation_time < ?", normalize(*f.To))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	var out []models.Reservation
	if err := q.Order("reservation_time ASC").Offset((page - 1) * limit).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// History returns the status trail of a reservation, oldest first. Customers
// only see the trail of their own reservations.
func (s *BookingService) History(ctx context.Context, actor Actor, id string) ([]models.ReservationStatusChange, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && res.UserID != actor.ID {
		return nil, ErrForbidden
	}
	var out []models.ReservationStatusChange
	err = s.DB.WithContext(ctx).Where("reservation_id = ?", id).Order("id ASC").Find(&out).Error
	return out, err
}

// Archive soft-deletes a reservation that already reached a terminal state.
func (s *BookingService) Archive(ctx context.Context, actor Actor, id string) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !res.IsTerminal() {
		return &InvalidTransitionError{ID: id, From: res.Status, Action: "archive"}
	}
	return s.DB.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", id).Error
}

// withRetry reruns fn while it reports a lost optimistic-lock race.
func (s *BookingService) withRetry(fn func() error) error {
	attempts := s.Policy.retries()
	var last *ConcurrencyError
	for i := 1; i <= attempts; i++ {
		err := fn()
		if !errors.As(err, &last) {
			return err
		}
		s.Log.WithField("attempt", i).Debug("optimistic lock lost, retrying")
	}
	last.Attempts = attempts
	return last
}

func writeClaims(tx *gorm.DB, res *models.Reservation, tableIDs []string) error {
	claims := make([]models.ReservationClaim, 0, len(tableIDs))
	for _, tid := range tableIDs {
		claims = append(claims, models.ReservationClaim{
			ReservationID: res.ID,
			TableID:       tid,
			Active:        true,
			StartsAt:      res.ReservationTime,
			EndsAt:        res.EndTime(),
			Status:        res.Status,
		})
	}
	return tx.Create(&claims).Error
}

func writeHistory(tx *gorm.DB, id, from, to string, actor Actor, reason string, at time.Time) error {
	return tx.Create(&models.ReservationStatusChange{
		ReservationID: id,
		FromStatus:    from,
		ToStatus:      to,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Reason:        reason,
		ChangedAt:     at,
	}).Error
}

func bumpVersions(tx *gorm.DB, versions map[string]int64) error {
	for _, id := range dedupeSorted(keys(versions)) {
		if err := bumpTable(tx, id, versions[id], map[string]interface{}{}); err != nil {
			return err
		}
	}
	return nil
}

func keys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func reservationNote(kind notify.Kind, r *models.Reservation) notify.Notification {
	t := targetOf(r)
	return notify.Notification{
		Kind:          kind,
		ReservationID: r.ID,
		ResourceID:    t.ID,
		ResourceType:  t.Kind,
		UserID:        r.UserID,
		Status:        r.Status,
	}
}

func notifyResource(t Target, status string) notify.Notification {
	return notify.Notification{
		Kind:         notify.ResourceStatusChanged,
		ResourceID:   t.ID,
		ResourceType: t.Kind,
		Status:       status,
	}
}
