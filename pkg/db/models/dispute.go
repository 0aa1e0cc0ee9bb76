package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// Dispute freezes settlement for a booking until an admin resolves it.
type Dispute struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID  uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index"`
	OpenedByID uuid.UUID           `gorm:"column:opened_by_id;type:uuid;not null"`
	Reason     string              `gorm:"column:reason;not null"`
	Status     enums.DisputeStatus `gorm:"column:status;type:text;not null;default:'open'"`
	ResolvedAt *time.Time          `gorm:"column:resolved_at"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
