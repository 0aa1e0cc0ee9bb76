package financials

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// Summary is the full financial picture of one booking: what the requester
// paid, what the platform kept, what the traveler gets, and where the money
// currently sits.
type Summary struct {
	BookingID uuid.UUID           `json:"booking_id"`
	Status    enums.BookingStatus `json:"status"`
	Currency  enums.Currency      `json:"currency"`
	Disputed  bool                `json:"disputed"`

	TransportPrice    *decimal.Decimal `json:"transport_price,omitempty"`
	CommissionAmount  *decimal.Decimal `json:"commission_amount,omitempty"`
	CommissionRate    *decimal.Decimal `json:"commission_rate,omitempty"`
	InsurancePremium  *decimal.Decimal `json:"insurance_premium,omitempty"`
	InsuranceCoverage *decimal.Decimal `json:"insurance_coverage,omitempty"`

	AmountHeld  *decimal.Decimal  `json:"amount_held,omitempty"`
	PlatformFee *decimal.Decimal  `json:"platform_fee,omitempty"`
	TravelerNet *decimal.Decimal  `json:"traveler_net,omitempty"`
	HoldStatus  *enums.HoldStatus `json:"hold_status,omitempty"`

	PaidAt   *time.Time `json:"paid_at,omitempty"`
	PayoutAt *time.Time `json:"payout_at,omitempty"`

	Transfers []TransferLine `json:"transfers"`
}

// TransferLine is one payout attempt in the summary.
type TransferLine struct {
	ID          uuid.UUID            `json:"id"`
	Provider    enums.PayoutProvider `json:"provider"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    enums.Currency       `json:"currency"`
	Status      enums.TransferStatus `json:"status"`
	Reason      enums.ReleaseReason  `json:"reason"`
	AttemptedAt time.Time            `json:"attempted_at"`
}

// BuildSummary assembles the summary from the booking and its ledger rows.
// Pure: no I/O, no clock reads. hold may be nil when payment was never
// captured.
func BuildSummary(booking *models.Booking, hold *models.PaymentHold, transfers []models.Transfer) Summary {
	summary := Summary{
		BookingID:         booking.ID,
		Status:            booking.Status,
		Currency:          booking.Currency,
		Disputed:          booking.Disputed,
		TransportPrice:    booking.TransportPrice,
		CommissionAmount:  booking.CommissionAmount,
		CommissionRate:    booking.CommissionRate,
		InsurancePremium:  booking.InsurancePremium,
		InsuranceCoverage: booking.InsuranceCoverage,
		PaidAt:            booking.PaidAt,
		PayoutAt:          booking.PayoutAt,
		Transfers:         make([]TransferLine, 0, len(transfers)),
	}

	if hold != nil {
		held := hold.AmountHeld
		fee := hold.PlatformFee
		net := held.Sub(fee)
		status := hold.Status
		summary.AmountHeld = &held
		summary.PlatformFee = &fee
		summary.TravelerNet = &net
		summary.HoldStatus = &status
	}

	for _, transfer := range transfers {
		summary.Transfers = append(summary.Transfers, TransferLine{
			ID:          transfer.ID,
			Provider:    transfer.Provider,
			Amount:      transfer.Amount,
			Currency:    transfer.Currency,
			Status:      transfer.Status,
			Reason:      transfer.Reason,
			AttemptedAt: transfer.AttemptedAt,
		})
	}

	return summary
}
