package models

import "time"

type ReservationStatusChange struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ReservationID string    `gorm:"type:varchar(36);not null;index" json:"reservation_id"`
	FromStatus    string    `gorm:"type:varchar(20)" json:"from_status"`
	ToStatus      string    `gorm:"type:varchar(20);not null" json:"to_status"`
	ActorID       string    `gorm:"type:varchar(64)" json:"actor_id"`
	ActorRole     string    `gorm:"type:varchar(20)" json:"actor_role"`
	Reason        string    `gorm:"type:varchar(255)" json:"reason,omitempty"`
	ChangedAt     time.Time `gorm:"not null" json:"changed_at"`
}

func (ReservationStatusChange) TableName() string {
	return "reservation_status_history"
}
