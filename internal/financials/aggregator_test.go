package financials

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

func TestBuildSummaryWithHoldAndTransfers(t *testing.T) {
	bookingID := uuid.New()
	paidAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	payoutAt := paidAt.Add(96 * time.Hour)
	transport := decimal.NewFromInt(50)
	commission := decimal.NewFromInt(6)

	booking := &models.Booking{
		ID:               bookingID,
		Status:           enums.BookingStatusDelivered,
		Currency:         enums.CurrencyEUR,
		TransportPrice:   &transport,
		CommissionAmount: &commission,
		PaidAt:           &paidAt,
		PayoutAt:         &payoutAt,
	}
	hold := &models.PaymentHold{
		BookingID:   bookingID,
		AmountHeld:  decimal.NewFromInt(56),
		PlatformFee: decimal.NewFromInt(6),
		Currency:    enums.CurrencyEUR,
		Status:      enums.HoldStatusSucceeded,
	}
	transfers := []models.Transfer{{
		ID:          uuid.New(),
		BookingID:   bookingID,
		Provider:    enums.PayoutProviderStripe,
		Amount:      decimal.NewFromInt(50),
		Currency:    enums.CurrencyEUR,
		Status:      enums.TransferStatusPaid,
		Reason:      enums.ReleaseReasonDeliveryConfirmed,
		AttemptedAt: payoutAt,
	}}

	summary := BuildSummary(booking, hold, transfers)

	assert.Equal(t, bookingID, summary.BookingID)
	assert.Equal(t, enums.BookingStatusDelivered, summary.Status)
	assert.False(t, summary.Disputed)

	require.NotNil(t, summary.AmountHeld)
	require.NotNil(t, summary.PlatformFee)
	require.NotNil(t, summary.TravelerNet)
	assert.True(t, summary.AmountHeld.Equal(decimal.NewFromInt(56)))
	assert.True(t, summary.TravelerNet.Equal(decimal.NewFromInt(50)), "net must be held minus fee")

	require.Len(t, summary.Transfers, 1)
	assert.Equal(t, enums.TransferStatusPaid, summary.Transfers[0].Status)
	assert.Equal(t, enums.ReleaseReasonDeliveryConfirmed, summary.Transfers[0].Reason)
}

func TestBuildSummaryBeforeCapture(t *testing.T) {
	booking := &models.Booking{
		ID:       uuid.New(),
		Status:   enums.BookingStatusAccepted,
		Currency: enums.CurrencyEUR,
	}

	summary := BuildSummary(booking, nil, nil)

	assert.Nil(t, summary.AmountHeld)
	assert.Nil(t, summary.PlatformFee)
	assert.Nil(t, summary.TravelerNet)
	assert.Nil(t, summary.HoldStatus)
	assert.Nil(t, summary.PaidAt)
	require.NotNil(t, summary.Transfers)
	assert.Empty(t, summary.Transfers, "transfers should be an empty list, not null")
}
