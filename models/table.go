package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status yang terlihat dari luar untuk meja / grup meja
const (
	StatusAvailable = "available"
	StatusOccupied  = "occupied"
	StatusCleaning  = "cleaning"
	StatusReserved  = "reserved"
)

const (
	DefaultBookMinutes   = 90
	DefaultCancelMinutes = 15
)

type Table struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableNumber   string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"table_number"`
	Capacity      int       `gorm:"not null" json:"capacity"`
	Location      string    `gorm:"type:varchar(100)" json:"location"`
	ManualStatus  string    `gorm:"type:varchar(20);not null;default:''" json:"manual_status,omitempty"`
	BookMinutes   int       `gorm:"not null" json:"book_minutes"`
	CancelMinutes int       `gorm:"not null" json:"cancel_minutes"`
	Deposit       float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"deposit"`
	Version       int64     `gorm:"not null;default:0" json:"-"`
	Status        string    `gorm:"-" json:"status"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsManual reports whether staff put the table into occupied or cleaning.
func IsManual(status string) bool {
	return status == StatusOccupied || status == StatusCleaning
}
