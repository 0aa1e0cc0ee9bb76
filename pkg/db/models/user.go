package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// User holds the identity fields the settlement engine consumes. The full
// profile (KYC documents, settings) lives in the identity subsystem.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"column:email;not null;unique"`
	Role      enums.UserRole  `gorm:"column:role;type:text;not null;default:'user'"`
	KYCStatus enums.KYCStatus `gorm:"column:kyc_status;type:text;not null;default:'incomplete'"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
