package database

import (
	"fmt"

	"github.com/yeremiapane/table-reservation/models"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Table{},
		&models.TableGroup{},
		&models.Reservation{},
		&models.ReservationClaim{},
		&models.ReservationStatusChange{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
