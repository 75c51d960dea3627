package models

import "time"

// ReservationClaim records that a reservation holds one concrete table for a window.
// A group booking writes one row per member table.
type ReservationClaim struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	ReservationID string    `gorm:"type:varchar(36);not null;index" json:"reservation_id"`
	TableID       string    `gorm:"type:varchar(36);not null;index:idx_claim_lookup,priority:1" json:"table_id"`
	Active        bool      `gorm:"not null;default:true;index:idx_claim_lookup,priority:2" json:"active"`
	StartsAt      time.Time `gorm:"not null;index:idx_claim_lookup,priority:3" json:"starts_at"`
	EndsAt        time.Time `gorm:"not null" json:"ends_at"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
}

func (ReservationClaim) TableName() string {
	return "reservation_tables"
}
