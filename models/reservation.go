package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationNoShow    = "no_show"
)

const DefaultTimeoutMinutes = 15

// ReasonExpired is recorded as the cancel reason when the sweep expires a pending booking.
const ReasonExpired = "expired"

type Reservation struct {
	ID               string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID           string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	TableID          *string        `gorm:"type:varchar(36);index" json:"table_id,omitempty"`
	TableGroupID     *string        `gorm:"type:varchar(36);index" json:"table_group_id,omitempty"`
	ReservationTime  time.Time      `gorm:"not null;index" json:"reservation_time"`
	DurationMinutes  int            `gorm:"not null" json:"duration_minutes"`
	NumPeople        int            `gorm:"not null" json:"num_people"`
	Preferences      datatypes.JSON `json:"preferences,omitempty"`
	Status           string         `gorm:"type:varchar(20);not null;default:'pending';index:idx_reservation_expiry,priority:1" json:"status"`
	TimeoutMinutes   int            `gorm:"not null" json:"timeout_minutes"`
	ExpiresAt        time.Time      `gorm:"not null;index:idx_reservation_expiry,priority:2" json:"expires_at"`
	ConfirmationSent bool           `gorm:"not null;default:false" json:"confirmation_sent"`
	CancelReason     string         `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	Version          int64          `gorm:"not null;default:0" json:"-"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// EndTime is the exclusive end of the booked window.
func (r *Reservation) EndTime() time.Time {
	return r.ReservationTime.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// IsTerminal reports whether no further transitions are allowed.
func (r *Reservation) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

func IsTerminalStatus(status string) bool {
	return status == ReservationCancelled || status == ReservationNoShow
}

// TargetID returns the table or group id the reservation points at.
func (r *Reservation) TargetID() string {
	if r.TableID != nil {
		return *r.TableID
	}
	if r.TableGroupID != nil {
		return *r.TableGroupID
	}
	return ""
}
