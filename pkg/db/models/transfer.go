package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// TransferActiveConstraint is the partial unique index guaranteeing at most
// one transfer in pending/paid per booking. Enforced in SQL (goose
// migration), checked by name when a concurrent release loses the race.
const TransferActiveConstraint = "ux_transfers_booking_active"

// Transfer is one payout ledger row per release attempt.
type Transfer struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID          uuid.UUID            `gorm:"column:booking_id;type:uuid;not null;index"`
	Provider           enums.PayoutProvider `gorm:"column:provider;type:text;not null"`
	ProviderTransferID string               `gorm:"column:provider_transfer_id;not null"`
	Amount             decimal.Decimal      `gorm:"column:amount;type:numeric(12,4);not null"`
	Currency           enums.Currency       `gorm:"column:currency;type:text;not null"`
	Status             enums.TransferStatus `gorm:"column:status;type:transfer_status;not null;default:'pending'"`
	Reason             enums.ReleaseReason  `gorm:"column:reason;type:text;not null"`
	AttemptedAt        time.Time            `gorm:"column:attempted_at;not null"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
