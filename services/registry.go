package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Registry owns tables, table groups and their manual states. It is the only
// writer of capacity, membership and manual status.
type Registry struct {
	*Deps
}

func NewRegistry(d *Deps) *Registry {
	return &Registry{Deps: d}
}

type TableInput struct {
	TableNumber   string
	Capacity      int
	Location      string
	BookMinutes   int
	CancelMinutes int
	Deposit       float64
}

// TableUpdate holds optional changes; nil fields are left alone.
type TableUpdate struct {
	TableNumber   *string
	Capacity      *int
	Location      *string
	BookMinutes   *int
	CancelMinutes *int
	Deposit       *float64
}

type GroupInput struct {
	GroupName        string
	TableIDs         []string
	CapacityOverride *int
	BookMinutes      int
	CancelMinutes    int
	Deposit          float64
}

type GroupUpdate struct {
	GroupName             *string
	CapacityOverride      *int
	ClearCapacityOverride bool
	BookMinutes           *int
	CancelMinutes         *int
	Deposit               *float64
}

func (r *Registry) CreateTable(ctx context.Context, in TableInput) (*models.Table, error) {
	number := strings.TrimSpace(in.TableNumber)
	if number == "" {
		return nil, &ValidationError{Field: "table_number", Reason: "is required"}
	}
	if in.Capacity <= 0 {
		return nil, &ValidationError{Field: "capacity", Reason: "must be positive"}
	}
	if err := validateMinutes(in.BookMinutes, in.CancelMinutes, in.Deposit); err != nil {
		return nil, err
	}

	now := r.now()
	table := models.Table{
		TableNumber:   number,
		Capacity:      in.Capacity,
		Location:      strings.TrimSpace(in.Location),
		BookMinutes:   orDefault(in.BookMinutes, r.Policy.bookMinutes()),
		CancelMinutes: orDefault(in.CancelMinutes, models.DefaultCancelMinutes),
		Deposit:       in.Deposit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Table{}).Where("table_number = ?", number).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateNumber
		}
		if err := tx.Create(&table).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateNumber
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	table.Status = models.StatusAvailable
	r.Log.WithFields(logrus.Fields{"table_id": table.ID, "table_number": table.TableNumber}).Info("table created")
	r.publishResource(ctx, TableTarget(table.ID), table.Status)
	return &table, nil
}

func (r *Registry) UpdateTable(ctx context.Context, id string, in TableUpdate) (*models.Table, error) {
	unlock := r.Locks.Lock(id)
	defer unlock()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: ResourceTable, ID: id}
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.TableNumber != nil {
			number := strings.TrimSpace(*in.TableNumber)
			if number == "" {
				return &ValidationError{Field: "table_number", Reason: "is required"}
			}
			if number != table.TableNumber {
				var count int64
				if err := tx.Model(&models.Table{}).Where("table_number = ? AND id <> ?", number, id).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return ErrDuplicateNumber
				}
				updates["table_number"] = number
			}
		}
		if in.Capacity != nil {
			if *in.Capacity <= 0 {
				return &ValidationError{Field: "capacity", Reason: "must be positive"}
			}
			if *in.Capacity < table.Capacity {
				if err := r.checkShrink(tx, &table, *in.Capacity); err != nil {
					return err
				}
			}
			updates["capacity"] = *in.Capacity
		}
		if in.Location != nil {
			updates["location"] = strings.TrimSpace(*in.Location)
		}
		if in.BookMinutes != nil {
			if *in.BookMinutes <= 0 {
				return &ValidationError{Field: "book_minutes", Reason: "must be positive"}
			}
			if err := tooLong("book_minutes", *in.BookMinutes); err != nil {
				return err
			}
			updates["book_minutes"] = *in.BookMinutes
		}
		if in.CancelMinutes != nil {
			if *in.CancelMinutes < 0 {
				return &ValidationError{Field: "cancel_minutes", Reason: "must not be negative"}
			}
			if err := tooLong("cancel_minutes", *in.CancelMinutes); err != nil {
				return err
			}
			updates["cancel_minutes"] = *in.CancelMinutes
		}
		if in.Deposit != nil {
			if *in.Deposit < 0 {
				return &ValidationError{Field: "deposit", Reason: "must not be negative"}
			}
			updates["deposit"] = *in.Deposit
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = r.now()
		return bumpTable(tx, table.ID, table.Version, updates)
	})
	if err != nil {
		return nil, err
	}
	return r.GetTable(ctx, id)
}

// checkShrink rejects a capacity cut that would strand an active party,
// either on the table itself or on a group that sums its members.
func (r *Registry) checkShrink(tx *gorm.DB, table *models.Table, capacity int) error {
	largest, err := largestParty(tx, "table_id", table.ID)
	if err != nil {
		return err
	}
	if largest > capacity {
		return &CapacityError{PartySize: largest, Capacity: capacity}
	}

	var groups []models.TableGroup
	if err := tx.Find(&groups).Error; err != nil {
		return err
	}
	for i := range groups {
		g := &groups[i]
		if !g.HasMember(table.ID) || g.CapacityOverride != nil {
			continue
		}
		var members []models.Table
		if err := tx.Where("id IN ?", []string(g.TableIDs)).Find(&members).Error; err != nil {
			return err
		}
		total := 0
		for _, m := range members {
			if m.ID == table.ID {
				total += capacity
			} else {
				total += m.Capacity
			}
		}
		largest, err := largestParty(tx, "table_group_id", g.ID)
		if err != nil {
			return err
		}
		if largest > total {
			return &CapacityError{PartySize: largest, Capacity: total}
		}
	}
	return nil
}

func largestParty(tx *gorm.DB, column, id string) (int, error) {
	var largest sql.NullInt64
	err := tx.Model(&models.Reservation{}).
		Select("MAX(num_people)").
		Where(column+" = ? AND status IN ?", id, activeStatuses).
		Row().Scan(&largest)
	if err != nil {
		return 0, err
	}
	return int(largest.Int64), nil
}

func (r *Registry) DeleteTable(ctx context.Context, id string) error {
	unlock := r.Locks.Lock(id)
	defer unlock()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: ResourceTable, ID: id}
			}
			return err
		}
		var groups []models.TableGroup
		if err := tx.Find(&groups).Error; err != nil {
			return err
		}
		for i := range groups {
			if groups[i].HasMember(id) {
				return ErrAlreadyGrouped
			}
		}
		var active int64
		if err := tx.Model(&models.ReservationClaim{}).Where("table_id = ? AND active = ?", id, true).Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrNonTerminalReservationExists
		}
		res := tx.Where("id = ? AND version = ?", id, table.Version).Delete(&models.Table{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConcurrencyError{ResourceIDs: []string{id}}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.Log.WithField("table_id", id).Info("table deleted")
	return nil
}

func (r *Registry) CreateGroup(ctx context.Context, in GroupInput) (*models.TableGroup, error) {
	name := strings.TrimSpace(in.GroupName)
	if name == "" {
		return nil, &ValidationError{Field: "group_name", Reason: "is required"}
	}
	ids := dedupeSorted(in.TableIDs)
	if len(ids) == 0 {
		return nil, ErrEmptyGroup
	}
	if in.CapacityOverride != nil && *in.CapacityOverride <= 0 {
		return nil, &ValidationError{Field: "capacity_override", Reason: "must be positive"}
	}
	if err := validateMinutes(in.BookMinutes, in.CancelMinutes, in.Deposit); err != nil {
		return nil, err
	}

	unlock := r.Locks.Lock(ids...)
	defer unlock()
	tracker := r.trackStatus(tableTargets(ids)...)

	now := r.now()
	group := models.TableGroup{
		GroupName:        name,
		TableIDs:         datatypes.JSONSlice[string](ids),
		CapacityOverride: in.CapacityOverride,
		BookMinutes:      orDefault(in.BookMinutes, r.Policy.bookMinutes()),
		CancelMinutes:    orDefault(in.CancelMinutes, models.DefaultCancelMinutes),
		Deposit:          in.Deposit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TableGroup{}).Where("group_name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateName
		}

		var tables []models.Table
		if err := tx.Where("id IN ?", ids).Find(&tables).Error; err != nil {
			return err
		}
		if len(tables) != len(ids) {
			return &NotFoundError{Kind: ResourceTable, ID: missingID(ids, tables)}
		}

		var groups []models.TableGroup
		if err := tx.Find(&groups).Error; err != nil {
			return err
		}
		for i := range groups {
			for _, id := range ids {
				if groups[i].HasMember(id) {
					return ErrAlreadyGrouped
				}
			}
		}

		if err := tx.Create(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateName
			}
			return err
		}
		// Bumping member versions makes a concurrent grouping or booking of
		// the same tables lose its optimistic check.
		return bumpMembers(tx, tables)
	})
	if err != nil {
		return nil, err
	}

	r.Log.WithFields(logrus.Fields{"group_id": group.ID, "tables": ids}).Info("table group created")
	tracker.publish(ctx)
	out, err := r.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	r.publishResource(ctx, GroupTarget(out.ID), out.Status)
	return out, nil
}

func (r *Registry) UpdateGroup(ctx context.Context, id string, in GroupUpdate) (*models.TableGroup, error) {
	var current models.TableGroup
	if err := r.DB.WithContext(ctx).First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: ResourceTableGroup, ID: id}
		}
		return nil, err
	}
	unlock := r.Locks.Lock(current.TableIDs...)
	defer unlock()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rt, err := loadTarget(tx, GroupTarget(id))
		if err != nil {
			return err
		}
		group := rt.Group

		updates := map[string]interface{}{}
		if in.GroupName != nil {
			name := strings.TrimSpace(*in.GroupName)
			if name == "" {
				return &ValidationError{Field: "group_name", Reason: "is required"}
			}
			if name != group.GroupName {
				var count int64
				if err := tx.Model(&models.TableGroup{}).Where("group_name = ? AND id <> ?", name, id).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return ErrDuplicateName
				}
				updates["group_name"] = name
			}
		}

		newCapacity := rt.Capacity
		switch {
		case in.ClearCapacityOverride:
			updates["capacity_override"] = nil
			newCapacity = groupCapacity(&models.TableGroup{}, rt.Members)
		case in.CapacityOverride != nil:
			if *in.CapacityOverride <= 0 {
				return &ValidationError{Field: "capacity_override", Reason: "must be positive"}
			}
			updates["capacity_override"] = *in.CapacityOverride
			newCapacity = *in.CapacityOverride
		}
		if newCapacity < rt.Capacity {
			largest, err := largestParty(tx, "table_group_id", id)
			if err != nil {
				return err
			}
			if largest > newCapacity {
				return &CapacityError{PartySize: largest, Capacity: newCapacity}
			}
		}

		if in.BookMinutes != nil {
			if *in.BookMinutes <= 0 {
				return &ValidationError{Field: "book_minutes", Reason: "must be positive"}
			}
			if err := tooLong("book_minutes", *in.BookMinutes); err != nil {
				return err
			}
			updates["book_minutes"] = *in.BookMinutes
		}
		if in.CancelMinutes != nil {
			if *in.CancelMinutes < 0 {
				return &ValidationError{Field: "cancel_minutes", Reason: "must not be negative"}
			}
			if err := tooLong("cancel_minutes", *in.CancelMinutes); err != nil {
				return err
			}
			updates["cancel_minutes"] = *in.CancelMinutes
		}
		if in.Deposit != nil {
			if *in.Deposit < 0 {
				return &ValidationError{Field: "deposit", Reason: "must not be negative"}
			}
			updates["deposit"] = *in.Deposit
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = r.now()
		return tx.Model(&models.TableGroup{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetGroup(ctx, id)
}

// DissolveGroup removes the group; member tables stay and become free to regroup.
func (r *Registry) DissolveGroup(ctx context.Context, id string) error {
	var current models.TableGroup
	if err := r.DB.WithContext(ctx).First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Kind: ResourceTableGroup, ID: id}
		}
		return err
	}
	unlock := r.Locks.Lock(current.TableIDs...)
	defer unlock()
	tracker := r.trackStatus(GroupTarget(id))

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rt, err := loadTarget(tx, GroupTarget(id))
		if err != nil {
			return err
		}
		var pending int64
		if err := tx.Model(&models.Reservation{}).
			Where("table_group_id = ? AND status IN ?", id, activeStatuses).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrNonTerminalReservationExists
		}
		// A booking of the group that read these versions before us now fails
		// its own version bump instead of landing on a deleted group.
		if err := bumpMembers(tx, rt.Members); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.TableGroup{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Kind: ResourceTableGroup, ID: id}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.Log.WithField("group_id", id).Info("table group dissolved")
	tracker.publish(ctx)
	return nil
}

// SetManualStatus puts a table or group into occupied or cleaning, or clears
// the override with "available".
func (r *Registry) SetManualStatus(ctx context.Context, actor Actor, resourceID, status string) (*Resource, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	manual := ""
	switch status {
	case models.StatusOccupied, models.StatusCleaning:
		manual = status
	case models.StatusAvailable:
	default:
		return nil, &ValidationError{Field: "status", Reason: "must be occupied, cleaning or available"}
	}

	target, err := r.findResource(r.DB.WithContext(ctx), resourceID)
	if err != nil {
		return nil, err
	}
	pre, err := loadTarget(r.DB.WithContext(ctx), target)
	if err != nil {
		return nil, err
	}
	unlock := r.Locks.Lock(pre.tableIDs()...)
	defer unlock()
	tracker := r.trackStatus(target)

	now := r.now()
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rt, err := loadTarget(tx, target)
		if err != nil {
			return err
		}
		if manual != "" {
			var covering int64
			if err := tx.Model(&models.ReservationClaim{}).
				Where("table_id IN ? AND active = ? AND status = ? AND starts_at <= ? AND ends_at > ?",
					rt.tableIDs(), true, models.ReservationConfirmed, now, now).
				Count(&covering).Error; err != nil {
				return err
			}
			if covering > 0 {
				return ErrActiveReservationExists
			}
		}
		updates := map[string]interface{}{"manual_status": manual, "updated_at": now}
		if rt.Table != nil {
			return bumpTable(tx, rt.Table.ID, rt.Table.Version, updates)
		}
		if err := bumpMembers(tx, rt.Members); err != nil {
			return err
		}
		return tx.Model(&models.TableGroup{}).Where("id = ?", rt.Group.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	r.Log.WithFields(logrus.Fields{"resource_id": resourceID, "manual_status": status, "actor": actor.ID}).Info("manual status set")
	tracker.publish(ctx)
	return r.GetResource(ctx, resourceID)
}

func (r *Registry) findResource(tx *gorm.DB, id string) (Target, error) {
	var count int64
	if err := tx.Model(&models.Table{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return Target{}, err
	}
	if count > 0 {
		return TableTarget(id), nil
	}
	if err := tx.Model(&models.TableGroup{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return Target{}, err
	}
	if count > 0 {
		return GroupTarget(id), nil
	}
	return Target{}, &NotFoundError{Kind: "resource", ID: id}
}

func (r *Registry) GetTable(ctx context.Context, id string) (*models.Table, error) {
	view, err := loadView(r.DB.WithContext(ctx), r.now())
	if err != nil {
		return nil, err
	}
	t, ok := view.tables[id]
	if !ok {
		return nil, &NotFoundError{Kind: ResourceTable, ID: id}
	}
	return t, nil
}

func (r *Registry) GetGroup(ctx context.Context, id string) (*models.TableGroup, error) {
	view, err := loadView(r.DB.WithContext(ctx), r.now())
	if err != nil {
		return nil, err
	}
	g, ok := view.groups[id]
	if !ok {
		return nil, &NotFoundError{Kind: ResourceTableGroup, ID: id}
	}
	return g, nil
}

// GetResource looks id up as a table first, then as a group.
func (r *Registry) GetResource(ctx context.Context, id string) (*Resource, error) {
	view, err := loadView(r.DB.WithContext(ctx), r.now())
	if err != nil {
		return nil, err
	}
	if t, ok := view.tables[id]; ok {
		return &Resource{Type: ResourceTable, Table: t}, nil
	}
	if g, ok := view.groups[id]; ok {
		return &Resource{Type: ResourceTableGroup, Group: g}, nil
	}
	return nil, &NotFoundError{Kind: "resource", ID: id}
}

func (r *Registry) ListTables(ctx context.Context) ([]models.Table, error) {
	view, err := loadView(r.DB.WithContext(ctx), r.now())
	if err != nil {
		return nil, err
	}
	out := make([]models.Table, 0, len(view.order))
	for _, id := range view.order {
		out = append(out, *view.tables[id])
	}
	return out, nil
}

func (r *Registry) ListGroups(ctx context.Context) ([]models.TableGroup, error) {
	view, err := loadView(r.DB.WithContext(ctx), r.now())
	if err != nil {
		return nil, err
	}
	out := make([]models.TableGroup, 0, len(view.gorder))
	for _, id := range view.gorder {
		out = append(out, *view.groups[id])
	}
	return out, nil
}

func (r *Registry) publishResource(ctx context.Context, t Target, status string) {
	r.publish(ctx, notifyResource(t, status))
}

// bumpTable applies updates and increments the optimistic version in one
// guarded statement.
func bumpTable(tx *gorm.DB, id string, version int64, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(&models.Table{}).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &ConcurrencyError{ResourceIDs: []string{id}}
	}
	return nil
}

func bumpMembers(tx *gorm.DB, members []models.Table) error {
	for _, t := range members {
		if err := bumpTable(tx, t.ID, t.Version, map[string]interface{}{}); err != nil {
			return err
		}
	}
	return nil
}

func validateMinutes(book, cancel int, deposit float64) error {
	if book < 0 {
		return &ValidationError{Field: "book_minutes", Reason: "must not be negative"}
	}
	if cancel < 0 {
		return &ValidationError{Field: "cancel_minutes", Reason: "must not be negative"}
	}
	if deposit < 0 {
		return &ValidationError{Field: "deposit", Reason: "must not be negative"}
	}
	if err := tooLong("book_minutes", book); err != nil {
		return err
	}
	return tooLong("cancel_minutes", cancel)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func tableTargets(ids []string) []Target {
	out := make([]Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, TableTarget(id))
	}
	return out
}
