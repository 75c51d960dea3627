package services

import (
	"errors"
	"time"

	"github.com/yeremiapane/table-reservation/models"
	"gorm.io/gorm"
)

const (
	ResourceTable      = "table"
	ResourceTableGroup = "table_group"
)

// Target names the table or table group a reservation points at.
type Target struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func TableTarget(id string) Target { return Target{Kind: ResourceTable, ID: id} }
func GroupTarget(id string) Target { return Target{Kind: ResourceTableGroup, ID: id} }

func targetOf(r *models.Reservation) Target {
	if r.TableID != nil {
		return TableTarget(*r.TableID)
	}
	if r.TableGroupID != nil {
		return GroupTarget(*r.TableGroupID)
	}
	return Target{}
}

// resolvedTarget is a target expanded to its concrete member tables.
type resolvedTarget struct {
	Target
	Table         *models.Table
	Group         *models.TableGroup
	Members       []models.Table
	Capacity      int
	BookMinutes   int
	CancelMinutes int
}

func (r *resolvedTarget) tableIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, t := range r.Members {
		ids = append(ids, t.ID)
	}
	return ids
}

func (r *resolvedTarget) versions() map[string]int64 {
	out := make(map[string]int64, len(r.Members))
	for _, t := range r.Members {
		out[t.ID] = t.Version
	}
	return out
}

func loadTarget(tx *gorm.DB, t Target) (*resolvedTarget, error) {
	switch t.Kind {
	case ResourceTable:
		var table models.Table
		if err := tx.First(&table, "id = ?", t.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Kind: ResourceTable, ID: t.ID}
			}
			return nil, err
		}
		return &resolvedTarget{
			Target:        t,
			Table:         &table,
			Members:       []models.Table{table},
			Capacity:      table.Capacity,
			BookMinutes:   table.BookMinutes,
			CancelMinutes: table.CancelMinutes,
		}, nil
	case ResourceTableGroup:
		var group models.TableGroup
		if err := tx.First(&group, "id = ?", t.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Kind: ResourceTableGroup, ID: t.ID}
			}
			return nil, err
		}
		var members []models.Table
		if err := tx.Where("id IN ?", []string(group.TableIDs)).Order("id").Find(&members).Error; err != nil {
			return nil, err
		}
		if len(members) != len(group.TableIDs) {
			return nil, &NotFoundError{Kind: ResourceTable, ID: missingID(group.TableIDs, members)}
		}
		return &resolvedTarget{
			Target:        t,
			Group:         &group,
			Members:       members,
			Capacity:      groupCapacity(&group, members),
			BookMinutes:   group.BookMinutes,
			CancelMinutes: group.CancelMinutes,
		}, nil
	}
	return nil, &ValidationError{Field: "target", Reason: "must be a table or a table group"}
}

func groupCapacity(g *models.TableGroup, members []models.Table) int {
	if g.CapacityOverride != nil {
		return *g.CapacityOverride
	}
	total := 0
	for _, m := range members {
		total += m.Capacity
	}
	return total
}

func missingID(want []string, got []models.Table) string {
	have := make(map[string]bool, len(got))
	for _, t := range got {
		have[t.ID] = true
	}
	for _, id := range want {
		if !have[id] {
			return id
		}
	}
	return ""
}

// resourceView is a point-in-time picture of every table, group and the
// claims covering "now". Status is derived from it rather than stored.
type resourceView struct {
	tables  map[string]*models.Table
	groups  map[string]*models.TableGroup
	order   []string
	gorder  []string
	covered map[string]bool
}

func loadView(tx *gorm.DB, now time.Time) (*resourceView, error) {
	var tables []models.Table
	if err := tx.Order("table_number").Find(&tables).Error; err != nil {
		return nil, err
	}
	var groups []models.TableGroup
	if err := tx.Order("group_name").Find(&groups).Error; err != nil {
		return nil, err
	}
	var claims []models.ReservationClaim
	if err := tx.Where("active = ? AND starts_at <= ? AND ends_at > ?", true, now, now).
		Find(&claims).Error; err != nil {
		return nil, err
	}

	v := &resourceView{
		tables:  make(map[string]*models.Table, len(tables)),
		groups:  make(map[string]*models.TableGroup, len(groups)),
		covered: make(map[string]bool, len(claims)),
	}
	for i := range tables {
		v.tables[tables[i].ID] = &tables[i]
		v.order = append(v.order, tables[i].ID)
	}
	for i := range groups {
		v.groups[groups[i].ID] = &groups[i]
		v.gorder = append(v.gorder, groups[i].ID)
	}
	for _, c := range claims {
		v.covered[c.TableID] = true
	}

	for _, t := range v.tables {
		t.Status = v.tableStatus(t.ID)
	}
	for _, g := range v.groups {
		g.Status = v.groupStatus(g.ID)
		g.TotalCapacity = v.groupCapacity(g)
	}
	return v, nil
}

func (v *resourceView) groupsContaining(tableID string) []*models.TableGroup {
	var out []*models.TableGroup
	for _, id := range v.gorder {
		if g := v.groups[id]; g.HasMember(tableID) {
			out = append(out, g)
		}
	}
	return out
}

// tableStatus: own override, then an override on a group holding the table,
// then reservation coverage.
func (v *resourceView) tableStatus(id string) string {
	t, ok := v.tables[id]
	if !ok {
		return ""
	}
	if models.IsManual(t.ManualStatus) {
		return t.ManualStatus
	}
	for _, g := range v.groupsContaining(id) {
		if models.IsManual(g.ManualStatus) {
			return g.ManualStatus
		}
	}
	if v.covered[id] {
		return models.StatusReserved
	}
	return models.StatusAvailable
}

func (v *resourceView) groupStatus(id string) string {
	g, ok := v.groups[id]
	if !ok {
		return ""
	}
	if models.IsManual(g.ManualStatus) {
		return g.ManualStatus
	}
	for _, tid := range g.TableIDs {
		if t, ok := v.tables[tid]; ok && models.IsManual(t.ManualStatus) {
			return t.ManualStatus
		}
	}
	for _, tid := range g.TableIDs {
		if v.covered[tid] {
			return models.StatusReserved
		}
	}
	return models.StatusAvailable
}

func (v *resourceView) groupCapacity(g *models.TableGroup) int {
	if g.CapacityOverride != nil {
		return *g.CapacityOverride
	}
	total := 0
	for _, tid := range g.TableIDs {
		if t, ok := v.tables[tid]; ok {
			total += t.Capacity
		}
	}
	return total
}

func (v *resourceView) statusOf(t Target) string {
	if t.Kind == ResourceTableGroup {
		return v.groupStatus(t.ID)
	}
	return v.tableStatus(t.ID)
}

// affected lists the target itself plus, for a group, its member tables and,
// for a table, the groups holding it.
func (v *resourceView) affected(t Target) []Target {
	out := []Target{t}
	switch t.Kind {
	case ResourceTableGroup:
		if g, ok := v.groups[t.ID]; ok {
			for _, tid := range g.TableIDs {
				out = append(out, TableTarget(tid))
			}
		}
	case ResourceTable:
		for _, g := range v.groupsContaining(t.ID) {
			out = append(out, GroupTarget(g.ID))
		}
	}
	return out
}

func (v *resourceView) snapshot(targets []Target) map[Target]string {
	out := make(map[Target]string, len(targets))
	for _, t := range targets {
		out[t] = v.statusOf(t)
	}
	return out
}
