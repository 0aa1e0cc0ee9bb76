package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// PaymentHold is one escrow ledger row per booking per capture attempt.
// ProviderHoldID is unique; at most one row per booking reaches succeeded.
type PaymentHold struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID      uuid.UUID        `gorm:"column:booking_id;type:uuid;not null;index"`
	ProviderHoldID string           `gorm:"column:provider_hold_id;not null;unique"`
	AmountHeld     decimal.Decimal  `gorm:"column:amount_held;type:numeric(12,4);not null"`
	PlatformFee    decimal.Decimal  `gorm:"column:platform_fee;type:numeric(12,4);not null"`
	Currency       enums.Currency   `gorm:"column:currency;type:text;not null"`
	Status         enums.HoldStatus `gorm:"column:status;type:hold_status;not null;default:'pending'"`
	ClientSecret   *string          `gorm:"column:client_secret"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
