package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	holds := `
CREATE TABLE IF NOT EXISTS payment_holds (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  provider_hold_id TEXT NOT NULL UNIQUE,
  amount_held TEXT NOT NULL,
  platform_fee TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  client_secret TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	transfers := `
CREATE TABLE IF NOT EXISTS transfers (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  provider TEXT NOT NULL,
  provider_transfer_id TEXT NOT NULL DEFAULT '',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  reason TEXT NOT NULL,
  attempted_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	activeIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS ux_transfers_booking_active
  ON transfers (booking_id)
  WHERE status IN ('pending', 'paid');`
	require.NoError(t, db.Exec(holds).Error)
	require.NoError(t, db.Exec(transfers).Error)
	require.NoError(t, db.Exec(activeIndex).Error)
	return db
}

func newHold(bookingID uuid.UUID, providerHoldID string) *models.PaymentHold {
	return &models.PaymentHold{
		ID:             uuid.New(),
		BookingID:      bookingID,
		ProviderHoldID: providerHoldID,
		AmountHeld:     decimal.NewFromInt(86),
		PlatformFee:    decimal.NewFromInt(36),
		Currency:       enums.CurrencyEUR,
		Status:         enums.HoldStatusPending,
	}
}

func newTransfer(bookingID uuid.UUID, attemptedAt time.Time) *models.Transfer {
	return &models.Transfer{
		ID:          uuid.New(),
		BookingID:   bookingID,
		Provider:    enums.PayoutProviderStripe,
		Amount:      decimal.NewFromInt(50),
		Currency:    enums.CurrencyEUR,
		Status:      enums.TransferStatusPending,
		Reason:      enums.ReleaseReasonDeliveryConfirmed,
		AttemptedAt: attemptedAt,
	}
}

func TestRepositoryCreateHold_upsertsOnProviderID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	bookingID := uuid.New()

	hold := newHold(bookingID, "pi_upsert")
	require.NoError(t, repo.CreateHold(context.Background(), hold))
	require.NoError(t, repo.UpdateHoldStatus(context.Background(), hold.ID, enums.HoldStatusSucceeded))

	// A racing retry records the same provider intent again; the row must
	// collapse onto the existing one without downgrading its status.
	secret := "pi_upsert_secret"
	retry := newHold(bookingID, "pi_upsert")
	retry.ClientSecret = &secret
	require.NoError(t, repo.CreateHold(context.Background(), retry))

	holds, err := repo.ListHoldsByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, hold.ID, holds[0].ID)
	assert.Equal(t, enums.HoldStatusSucceeded, holds[0].Status)
	require.NotNil(t, holds[0].ClientSecret)
	assert.Equal(t, secret, *holds[0].ClientSecret)
}

func TestRepositoryCreateTransfer_oneActivePerBooking(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	bookingID := uuid.New()
	now := time.Now().UTC()

	winner := newTransfer(bookingID, now)
	require.NoError(t, repo.CreateTransfer(context.Background(), winner))

	loser := newTransfer(bookingID, now)
	err := repo.CreateTransfer(context.Background(), loser)
	require.Error(t, err, "second active transfer for the booking must be rejected")

	active, err := repo.FindActiveTransferByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, active.ID)

	// Marking the active transfer failed frees the slot for a retry.
	require.NoError(t, repo.UpdateTransfer(context.Background(), winner.ID, enums.TransferStatusFailed, ""))
	retry := newTransfer(bookingID, now.Add(time.Minute))
	require.NoError(t, repo.CreateTransfer(context.Background(), retry))

	active, err = repo.FindActiveTransferByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, retry.ID, active.ID)

	// A paid transfer still occupies the slot.
	require.NoError(t, repo.UpdateTransfer(context.Background(), retry.ID, enums.TransferStatusPaid, "tr_1"))
	err = repo.CreateTransfer(context.Background(), newTransfer(bookingID, now.Add(2*time.Minute)))
	require.Error(t, err)

	active, err = repo.FindActiveTransferByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusPaid, active.Status)
	assert.Equal(t, "tr_1", active.ProviderTransferID)
}

func TestRepositoryListPendingTransfers_cutoff(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	stale := newTransfer(uuid.New(), now.Add(-time.Hour))
	require.NoError(t, repo.CreateTransfer(context.Background(), stale))

	fresh := newTransfer(uuid.New(), now.Add(-time.Minute))
	require.NoError(t, repo.CreateTransfer(context.Background(), fresh))

	settled := newTransfer(uuid.New(), now.Add(-2*time.Hour))
	require.NoError(t, repo.CreateTransfer(context.Background(), settled))
	require.NoError(t, repo.UpdateTransfer(context.Background(), settled.ID, enums.TransferStatusPaid, "tr_2"))

	list, err := repo.ListPendingTransfers(context.Background(), now.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stale.ID, list[0].ID)
}

func TestRepositoryListPendingHolds_cutoff(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	stale := newHold(uuid.New(), "pi_stale")
	stale.CreatedAt = now.Add(-time.Hour)
	require.NoError(t, repo.CreateHold(context.Background(), stale))

	fresh := newHold(uuid.New(), "pi_fresh")
	fresh.CreatedAt = now.Add(-time.Minute)
	require.NoError(t, repo.CreateHold(context.Background(), fresh))

	settled := newHold(uuid.New(), "pi_settled")
	settled.CreatedAt = now.Add(-2 * time.Hour)
	require.NoError(t, repo.CreateHold(context.Background(), settled))
	require.NoError(t, repo.UpdateHoldStatus(context.Background(), settled.ID, enums.HoldStatusSucceeded))

	list, err := repo.ListPendingHolds(context.Background(), now.Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stale.ID, list[0].ID)
}
