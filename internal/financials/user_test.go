package financials

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

func uncapturedBooking(status enums.BookingStatus, insured bool) models.Booking {
	booking := models.Booking{
		ID:             uuid.New(),
		RequesterID:    uuid.New(),
		TravelerID:     uuid.New(),
		WeightKG:       dec("5"),
		PricePerKG:     dec("10"),
		DeclaredValue:  dec("1000"),
		InsuranceOpted: insured,
		Currency:       enums.CurrencyEUR,
		Status:         status,
	}
	return booking
}

func capturedBooking(status enums.BookingStatus, insured bool) models.Booking {
	booking := uncapturedBooking(status, insured)
	paidAt := time.Now().Add(-24 * time.Hour)
	booking.TransportPrice = decPtr("50")
	booking.CommissionAmount = decPtr("6")
	booking.CommissionRate = decPtr("0.12")
	if insured {
		booking.InsurancePremium = decPtr("30")
		booking.InsuranceCoverage = decPtr("500")
	}
	booking.PaidAt = &paidAt
	return booking
}

func TestAggregateUserTravelerBuckets(t *testing.T) {
	travelerID := uuid.New()
	set := []models.Booking{
		capturedBooking(enums.BookingStatusPaid, false),
		capturedBooking(enums.BookingStatusInTransit, false),
		capturedBooking(enums.BookingStatusDelivered, false),
		uncapturedBooking(enums.BookingStatusPending, false),
	}

	totals := AggregateUser(travelerID, PartyTraveler, set)

	require.Len(t, totals.Bookings, 4)
	// 44 net per settled booking: 50 transport minus 6 commission.
	assert.True(t, totals.TotalToReceive.Equal(dec("132")),
		"total to receive = %s, want 132", totals.TotalToReceive)
	assert.True(t, totals.InTransit.Equal(dec("44")),
		"in transit = %s, want 44", totals.InTransit)
	assert.True(t, totals.AwaitingPickup.Equal(dec("44")),
		"awaiting pickup = %s, want 44", totals.AwaitingPickup)
	assert.True(t, totals.TotalBlocked.IsZero())
	assert.True(t, totals.TotalPaid.IsZero())
}

func TestAggregateUserRequesterBuckets(t *testing.T) {
	requesterID := uuid.New()
	cancelled := capturedBooking(enums.BookingStatusCancelled, false)
	set := []models.Booking{
		capturedBooking(enums.BookingStatusPaid, true),
		cancelled,
		uncapturedBooking(enums.BookingStatusPending, false),
	}

	totals := AggregateUser(requesterID, PartyRequester, set)

	// Only the paid booking is still escrowed: 50 + 6 + 30.
	assert.True(t, totals.TotalBlocked.Equal(dec("86")),
		"total blocked = %s, want 86", totals.TotalBlocked)
	// Lifetime spend counts the refunded booking too: 86 + 56.
	assert.True(t, totals.TotalPaid.Equal(dec("142")),
		"total paid = %s, want 142", totals.TotalPaid)
	assert.True(t, totals.TotalToReceive.IsZero())
}

func TestAggregateUserPrefersCapturedSnapshot(t *testing.T) {
	booking := capturedBooking(enums.BookingStatusPaid, false)
	// Diverge the raw inputs from the snapshot; the snapshot must win
	// because the captured amounts are immutable.
	booking.WeightKG = dec("99")

	totals := AggregateUser(uuid.New(), PartyTraveler, []models.Booking{booking})

	require.Len(t, totals.Bookings, 1)
	assert.True(t, totals.Bookings[0].TransportPrice.Equal(dec("50")))
	assert.True(t, totals.TotalToReceive.Equal(dec("44")))
}

func TestAggregateUserRecomputesBeforeCapture(t *testing.T) {
	booking := uncapturedBooking(enums.BookingStatusPending, true)

	totals := AggregateUser(uuid.New(), PartyRequester, []models.Booking{booking})

	require.Len(t, totals.Bookings, 1)
	line := totals.Bookings[0]
	assert.True(t, line.TransportPrice.Equal(dec("50")))
	assert.True(t, line.Commission.Equal(dec("6")))
	require.NotNil(t, line.InsurancePremium)
	assert.True(t, line.InsurancePremium.Equal(dec("30")))
	assert.True(t, line.Total.Equal(dec("86")))
	// Pending bookings contribute lines but no bucket totals.
	assert.True(t, totals.TotalBlocked.IsZero())
	assert.True(t, totals.TotalPaid.IsZero())
}
