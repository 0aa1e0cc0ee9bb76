package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// Booking is one transport request matched to one traveler's trip.
//
// Once PaidAt is set the four computed amount columns are immutable:
// re-pricing after capture is forbidden, the capture orchestrator enforces it.
type Booking struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequesterID uuid.UUID `gorm:"column:requester_id;type:uuid;not null;index"`
	TravelerID  uuid.UUID `gorm:"column:traveler_id;type:uuid;not null;index"`

	WeightKG       decimal.Decimal `gorm:"column:weight_kg;type:numeric(10,3);not null"`
	PricePerKG     decimal.Decimal `gorm:"column:price_per_kg;type:numeric(12,4);not null"`
	DeclaredValue  decimal.Decimal `gorm:"column:declared_value;type:numeric(12,2);not null;default:0"`
	InsuranceOpted bool            `gorm:"column:insurance_opted;not null;default:false"`

	TransportPrice    *decimal.Decimal `gorm:"column:transport_price;type:numeric(12,4)"`
	CommissionAmount  *decimal.Decimal `gorm:"column:commission_amount;type:numeric(12,4)"`
	CommissionRate    *decimal.Decimal `gorm:"column:commission_rate;type:numeric(6,4)"`
	InsurancePremium  *decimal.Decimal `gorm:"column:insurance_premium;type:numeric(12,4)"`
	InsuranceCoverage *decimal.Decimal `gorm:"column:insurance_coverage;type:numeric(12,2)"`

	Currency enums.Currency      `gorm:"column:currency;type:text;not null;default:'EUR'"`
	Status   enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`

	PaymentHoldID *string `gorm:"column:payment_hold_id"`
	PayoutID      *string `gorm:"column:payout_id"`

	Disputed      bool    `gorm:"column:disputed;not null;default:false"`
	DisputeReason *string `gorm:"column:dispute_reason"`

	AcceptedAt          *time.Time `gorm:"column:accepted_at"`
	PaidAt              *time.Time `gorm:"column:paid_at"`
	DepositedAt         *time.Time `gorm:"column:deposited_at"`
	DeliveredAt         *time.Time `gorm:"column:delivered_at"`
	DeliveryConfirmedAt *time.Time `gorm:"column:delivery_confirmed_at"`
	PayoutAt            *time.Time `gorm:"column:payout_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
