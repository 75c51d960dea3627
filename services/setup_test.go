package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/table-reservation/database"
	"github.com/yeremiapane/table-reservation/models"
	"github.com/yeremiapane/table-reservation/notify"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	staff = Actor{ID: "staff-1", Role: RoleStaff}
	alice = Actor{ID: "alice", Role: RoleCustomer}
	bob   = Actor{ID: "bob", Role: RoleCustomer}
)

// base is "now" for every test: noon, well before the evening service.
var base = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2030, 6, 1, hour, min, 0, 0, time.UTC)
}

type fixture struct {
	db       *gorm.DB
	clock    *FakeClock
	rec      *notify.Recorder
	deps     *Deps
	registry *Registry
	booking  *BookingService
	ctx      context.Context
}

// setupTestDB membuka SQLite in-memory terpisah per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicy(t, DefaultPolicy())
}

func newFixtureWithPolicy(t *testing.T, policy Policy) *fixture {
	t.Helper()
	db := setupTestDB(t)
	clock := NewFakeClock(base)
	rec := &notify.Recorder{}
	deps := NewDeps(db, clock, rec, nil, policy)
	return &fixture{
		db:       db,
		clock:    clock,
		rec:      rec,
		deps:     deps,
		registry: NewRegistry(deps),
		booking:  NewBookingService(deps),
		ctx:      context.Background(),
	}
}

func (f *fixture) table(t *testing.T, number string, capacity int) *models.Table {
	t.Helper()
	table, err := f.registry.CreateTable(f.ctx, TableInput{TableNumber: number, Capacity: capacity, BookMinutes: 90})
	require.NoError(t, err)
	return table
}

func (f *fixture) group(t *testing.T, name string, tables ...*models.Table) *models.TableGroup {
	t.Helper()
	ids := make([]string, 0, len(tables))
	for _, tb := range tables {
		ids = append(ids, tb.ID)
	}
	g, err := f.registry.CreateGroup(f.ctx, GroupInput{GroupName: name, TableIDs: ids, BookMinutes: 90})
	require.NoError(t, err)
	return g
}

func (f *fixture) reserveTable(actor Actor, tableID string, start time.Time, minutes, people int) (*models.Reservation, error) {
	return f.booking.CreateReservation(f.ctx, actor, CreateRequest{
		TableID:         tableID,
		ReservationTime: start,
		DurationMinutes: minutes,
		NumPeople:       people,
	})
}

func (f *fixture) reserveGroup(actor Actor, groupID string, start time.Time, minutes, people int) (*models.Reservation, error) {
	return f.booking.CreateReservation(f.ctx, actor, CreateRequest{
		TableGroupID:    groupID,
		ReservationTime: start,
		DurationMinutes: minutes,
		NumPeople:       people,
	})
}

func (f *fixture) reload(t *testing.T, id string) *models.Reservation {
	t.Helper()
	var res models.Reservation
	require.NoError(t, f.db.Unscoped().First(&res, "id = ?", id).Error)
	return &res
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
