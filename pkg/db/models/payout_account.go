package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// PayoutAccount is the traveler's payout destination. It is owned by the
// identity/settings subsystem and read-only to the settlement engine.
type PayoutAccount struct {
	UserID uuid.UUID          `gorm:"column:user_id;type:uuid;primaryKey"`
	Method enums.PayoutMethod `gorm:"column:method;type:text;not null"`

	// Bank rail: custodial account with payouts enabled.
	StripeAccountID *string `gorm:"column:stripe_account_id"`
	PayoutsEnabled  bool    `gorm:"column:payouts_enabled;not null;default:false"`

	// Mobile-money rail: operator + phone confirmed via one-time code.
	WalletOperator *string `gorm:"column:wallet_operator"`
	WalletPhone    *string `gorm:"column:wallet_phone"`
	WalletVerified bool    `gorm:"column:wallet_verified;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
