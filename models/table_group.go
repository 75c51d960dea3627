package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TableGroup menggabungkan beberapa meja menjadi satu resource yang bisa dipesan.
// Hanya grup yang menyimpan daftar anggota; meja tidak tahu grupnya.
type TableGroup struct {
	ID               string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	GroupName        string                      `gorm:"type:varchar(100);not null;uniqueIndex" json:"group_name"`
	TableIDs         datatypes.JSONSlice[string] `gorm:"type:json;not null" json:"table_ids"`
	CapacityOverride *int                        `json:"capacity_override,omitempty"`
	TotalCapacity    int                         `gorm:"-" json:"total_capacity"`
	ManualStatus     string                      `gorm:"type:varchar(20);not null;default:''" json:"manual_status,omitempty"`
	BookMinutes      int                         `gorm:"not null" json:"book_minutes"`
	CancelMinutes    int                         `gorm:"not null" json:"cancel_minutes"`
	Deposit          float64                     `gorm:"type:decimal(10,2);not null;default:0.00" json:"deposit"`
	Status           string                      `gorm:"-" json:"status"`
	CreatedAt        time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"not null" json:"updated_at"`
}

func (g *TableGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// HasMember reports whether tableID is one of the group's tables.
func (g *TableGroup) HasMember(tableID string) bool {
	for _, id := range g.TableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}
