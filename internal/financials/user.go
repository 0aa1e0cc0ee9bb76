package financials

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AmielDylan/sendbox-sub002/internal/pricing"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// PartyRole is the side of a booking a user is aggregated for.
type PartyRole string

const (
	PartyTraveler  PartyRole = "traveler"
	PartyRequester PartyRole = "requester"
)

func (r PartyRole) IsValid() bool {
	return r == PartyTraveler || r == PartyRequester
}

// BookingLine is one booking's contribution to a user's totals.
type BookingLine struct {
	BookingID        uuid.UUID           `json:"booking_id"`
	Status           enums.BookingStatus `json:"status"`
	Currency         enums.Currency      `json:"currency"`
	TransportPrice   decimal.Decimal     `json:"transport_price"`
	Commission       decimal.Decimal     `json:"commission"`
	InsurancePremium *decimal.Decimal    `json:"insurance_premium,omitempty"`
	Total            decimal.Decimal     `json:"total"`
	TravelerNet      decimal.Decimal     `json:"traveler_net"`
}

// UserFinancials buckets a user's bookings by settlement phase. Traveler
// totals are net of commission; requester totals are the full escrowed
// amount. Sums stay unrounded so rounding error never compounds across
// bookings; callers round for display.
type UserFinancials struct {
	UserID uuid.UUID `json:"user_id"`
	Role   PartyRole `json:"role"`

	// Traveler buckets.
	TotalToReceive decimal.Decimal `json:"total_to_receive"`
	AwaitingPickup decimal.Decimal `json:"awaiting_pickup"`
	InTransit      decimal.Decimal `json:"in_transit"`

	// Requester buckets.
	TotalBlocked decimal.Decimal `json:"total_blocked"`
	TotalPaid    decimal.Decimal `json:"total_paid"`

	Bookings []BookingLine `json:"bookings"`
}

// settledStatuses are the post-payment transport states whose money is in
// play: escrowed for the requester, owed to the traveler.
var settledStatuses = map[enums.BookingStatus]bool{
	enums.BookingStatusPaid:      true,
	enums.BookingStatusDeposited: true,
	enums.BookingStatusInTransit: true,
	enums.BookingStatusDelivered: true,
}

// AggregateUser projects a user's bookings into per-phase totals. Pure:
// no I/O, no mutation of the input slice.
func AggregateUser(userID uuid.UUID, role PartyRole, userBookings []models.Booking) UserFinancials {
	out := UserFinancials{
		UserID:   userID,
		Role:     role,
		Bookings: make([]BookingLine, 0, len(userBookings)),
	}

	for i := range userBookings {
		booking := &userBookings[i]
		breakdown := breakdownFor(booking)
		line := BookingLine{
			BookingID:        booking.ID,
			Status:           booking.Status,
			Currency:         booking.Currency,
			TransportPrice:   breakdown.TransportPrice,
			Commission:       breakdown.Commission,
			InsurancePremium: breakdown.InsurancePremium,
			Total:            breakdown.Total,
			TravelerNet:      breakdown.Net(),
		}
		out.Bookings = append(out.Bookings, line)

		switch role {
		case PartyTraveler:
			if !settledStatuses[booking.Status] {
				continue
			}
			out.TotalToReceive = out.TotalToReceive.Add(line.TravelerNet)
			if booking.Status == enums.BookingStatusInTransit {
				out.InTransit = out.InTransit.Add(line.TravelerNet)
			}
			if booking.Status == enums.BookingStatusPaid {
				out.AwaitingPickup = out.AwaitingPickup.Add(line.TravelerNet)
			}
		case PartyRequester:
			if settledStatuses[booking.Status] {
				out.TotalBlocked = out.TotalBlocked.Add(line.Total)
			}
			// Lifetime spend counts every booking that was ever captured,
			// whatever its current status.
			if booking.PaidAt != nil {
				out.TotalPaid = out.TotalPaid.Add(line.Total)
			}
		}
	}

	return out
}

// breakdownFor prefers the immutable snapshot written at capture time and
// falls back to recomputing from the booking's pricing inputs for bookings
// that have not been captured yet.
func breakdownFor(booking *models.Booking) pricing.Breakdown {
	if booking.TransportPrice == nil || booking.CommissionAmount == nil {
		return pricing.ComputeDecimal(
			booking.WeightKG, booking.PricePerKG, booking.DeclaredValue, booking.InsuranceOpted)
	}

	breakdown := pricing.Breakdown{
		TransportPrice: *booking.TransportPrice,
		Commission:     *booking.CommissionAmount,
		CommissionRate: pricing.CommissionRate,
		Subtotal:       booking.TransportPrice.Add(*booking.CommissionAmount),
	}
	if booking.CommissionRate != nil {
		breakdown.CommissionRate = *booking.CommissionRate
	}
	breakdown.Total = breakdown.Subtotal
	if booking.InsurancePremium != nil {
		premium := *booking.InsurancePremium
		breakdown.InsurancePremium = &premium
		breakdown.Total = breakdown.Subtotal.Add(premium)
	}
	if booking.InsuranceCoverage != nil {
		coverage := *booking.InsuranceCoverage
		breakdown.InsuranceCoverage = &coverage
	}
	return breakdown
}
