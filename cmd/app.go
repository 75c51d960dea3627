package cmd

import (
	"fmt"

	"github.com/yeremiapane/table-reservation/config"
	"github.com/yeremiapane/table-reservation/database"
	"github.com/yeremiapane/table-reservation/notify"
	"github.com/yeremiapane/table-reservation/services"
	"github.com/yeremiapane/table-reservation/utils"
	"gorm.io/gorm"
)

// openDB memuat config, membuka koneksi dan (opsional) menjalankan migrasi.
func openDB(migrate bool) (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	utils.SetJWTSecret(cfg.JWTSecret)

	db, err := config.InitDB(cfg, utils.InfoLogger)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return cfg, nil, fmt.Errorf("failed to migrate: %w", err)
		}
		utils.InfoLogger.Info("AutoMigrate completed.")
	}
	return cfg, db, nil
}

func policyFrom(cfg config.Config) services.Policy {
	return services.Policy{
		DefaultBookMinutes:    cfg.DefaultBookMinutes,
		DefaultTimeoutMinutes: cfg.DefaultTimeoutMinutes,
		NoShowGraceMode:       cfg.NoShowGraceMode,
		NoShowGrace:           cfg.NoShowGrace,
		MaxRetries:            cfg.BookingMaxRetries,
	}
}

func newScheduler(cfg config.Config, booking *services.BookingService) *services.ExpiryScheduler {
	s := services.NewExpiryScheduler(booking)
	s.Interval = cfg.SweepInterval
	s.BatchSize = cfg.SweepBatch
	s.AutoNoShowAfter = cfg.AutoNoShowAfter
	return s
}

func newDeps(cfg config.Config, db *gorm.DB, n notify.Notifier) *services.Deps {
	return services.NewDeps(db, services.SystemClock{}, n, utils.InfoLogger, policyFrom(cfg))
}

func newBookingFrom(cfg config.Config, db *gorm.DB, n notify.Notifier) *services.BookingService {
	return services.NewBookingService(newDeps(cfg, db, n))
}
