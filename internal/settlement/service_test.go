package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/internal/accounts"
	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/internal/payout"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/fedapay"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeBookingsRepo struct {
	bookings.Repository
	booking      *models.Booking
	payoutID     string
	payoutSet    bool
	deliveredSet bool
}

func (f *fakeBookingsRepo) WithTx(tx *gorm.DB) bookings.Repository { return f }

func (f *fakeBookingsRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Booking, error) {
	if f.booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return f.booking, nil
}

func (f *fakeBookingsRepo) SetPayout(_ context.Context, _ uuid.UUID, payoutID string, _ time.Time) error {
	f.payoutID = payoutID
	f.payoutSet = true
	return nil
}

func (f *fakeBookingsRepo) SetDelivered(_ context.Context, _ uuid.UUID, confirmedAt time.Time) error {
	f.deliveredSet = true
	if f.booking != nil {
		f.booking.Status = enums.BookingStatusDelivered
		at := confirmedAt
		f.booking.DeliveredAt = &at
		f.booking.DeliveryConfirmedAt = &at
	}
	return nil
}

type fakeLedgerRepo struct {
	ledger.Repository
	hold           *models.PaymentHold
	activeTransfer *models.Transfer
	createErr      error
	created        *models.Transfer
	updatedStatus  enums.TransferStatus
	updatedID      string
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) FindSucceededHoldByBookingID(_ context.Context, _ uuid.UUID) (*models.PaymentHold, error) {
	if f.hold == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment hold not found")
	}
	return f.hold, nil
}

func (f *fakeLedgerRepo) FindActiveTransferByBookingID(_ context.Context, _ uuid.UUID) (*models.Transfer, error) {
	if f.activeTransfer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}
	return f.activeTransfer, nil
}

func (f *fakeLedgerRepo) CreateTransfer(_ context.Context, transfer *models.Transfer) error {
	if f.createErr != nil {
		return f.createErr
	}
	transfer.ID = uuid.New()
	f.created = transfer
	return nil
}

func (f *fakeLedgerRepo) UpdateTransfer(_ context.Context, _ uuid.UUID, status enums.TransferStatus, providerID string) error {
	f.updatedStatus = status
	f.updatedID = providerID
	return nil
}

type fakeAccountsRepo struct {
	accounts.Repository
	account *models.PayoutAccount
}

func (f *fakeAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountsRepo) FindByUserID(_ context.Context, _ uuid.UUID) (*models.PayoutAccount, error) {
	if f.account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
	}
	return f.account, nil
}

type fakeRail struct {
	validateErr error
	sendErr     error
	result      *payout.TransferResult
	sentReq     *payout.TransferRequest
}

func (f *fakeRail) Provider() enums.PayoutProvider { return enums.PayoutProviderStripe }
func (f *fakeRail) Method() enums.PayoutMethod     { return enums.PayoutMethodBank }

func (f *fakeRail) Validate(_ context.Context, _ *models.PayoutAccount, _ enums.Currency) error {
	return f.validateErr
}

func (f *fakeRail) Send(_ context.Context, req payout.TransferRequest) (*payout.TransferResult, error) {
	f.sentReq = &req
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.result, nil
}

type fakeRegistry struct {
	rail *fakeRail
}

func (f *fakeRegistry) ForAccount(account *models.PayoutAccount) (payout.Rail, error) {
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "no payout account configured").
			WithReason(payout.ReasonWalletNotConfigured)
	}
	return f.rail, nil
}

type fakeWalletStatus struct {
	payout  *fedapay.Payout
	err     error
	queried int64
}

func (f *fakeWalletStatus) GetPayout(_ context.Context, id int64) (*fedapay.Payout, error) {
	f.queried = id
	if f.err != nil {
		return nil, f.err
	}
	return f.payout, nil
}

func dec(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func deliveredBooking() *models.Booking {
	return &models.Booking{
		ID:          uuid.New(),
		RequesterID: uuid.New(),
		TravelerID:  uuid.New(),
		Currency:    enums.CurrencyEUR,
		Status:      enums.BookingStatusDelivered,
	}
}

func succeededHold(bookingID uuid.UUID) *models.PaymentHold {
	return &models.PaymentHold{
		ID:          uuid.New(),
		BookingID:   bookingID,
		AmountHeld:  dec("86"),
		PlatformFee: dec("36"),
		Currency:    enums.CurrencyEUR,
		Status:      enums.HoldStatusSucceeded,
	}
}

func bankAccount(userID uuid.UUID) *models.PayoutAccount {
	acct := "acct_1"
	return &models.PayoutAccount{
		UserID:          userID,
		Method:          enums.PayoutMethodBank,
		StripeAccountID: &acct,
		PayoutsEnabled:  true,
	}
}

type harness struct {
	svc          *Service
	bookingsRepo *fakeBookingsRepo
	ledgerRepo   *fakeLedgerRepo
	accountsRepo *fakeAccountsRepo
	rail         *fakeRail
	wallet       *fakeWalletStatus
}

func newHarness(t *testing.T, booking *models.Booking) *harness {
	t.Helper()
	h := &harness{
		bookingsRepo: &fakeBookingsRepo{booking: booking},
		ledgerRepo:   &fakeLedgerRepo{},
		accountsRepo: &fakeAccountsRepo{},
		rail: &fakeRail{result: &payout.TransferResult{
			ProviderTransferID: "tr_1",
			Status:             enums.TransferStatusPaid,
		}},
		wallet: &fakeWalletStatus{},
	}
	if booking != nil {
		h.ledgerRepo.hold = succeededHold(booking.ID)
		h.accountsRepo.account = bankAccount(booking.TravelerID)
	}

	svc, err := NewService(ServiceParams{
		Tx:       fakeTx{},
		Bookings: h.bookingsRepo,
		Ledger:   h.ledgerRepo,
		Accounts: h.accountsRepo,
		Rails:    &fakeRegistry{rail: h.rail},
		Wallet:   h.wallet,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	h.svc = svc
	return h
}

func TestService_Release(t *testing.T) {
	booking := deliveredBooking()
	h := newHarness(t, booking)

	result, err := h.svc.Release(context.Background(), ReleaseInput{
		BookingID: booking.ID,
		Reason:    enums.ReleaseReasonDeliveryConfirmed,
	})
	if err != nil {
		t.Fatalf("release error: %v", err)
	}
	if !result.Success || result.AlreadyTransferred {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Status != enums.TransferStatusPaid {
		t.Errorf("status = %s, want paid", result.Status)
	}

	// net = 86 held - 36 fee
	if h.rail.sentReq == nil || !h.rail.sentReq.Amount.Equal(dec("50")) {
		t.Errorf("sent amount = %v, want 50", h.rail.sentReq)
	}
	if h.rail.sentReq.IdempotencyKey != TransferIdempotencyKey(booking.ID) {
		t.Errorf("idempotency key = %q, not deterministic", h.rail.sentReq.IdempotencyKey)
	}
	if h.ledgerRepo.created == nil || h.ledgerRepo.created.Reason != enums.ReleaseReasonDeliveryConfirmed {
		t.Errorf("transfer row = %+v", h.ledgerRepo.created)
	}
	if h.ledgerRepo.updatedStatus != enums.TransferStatusPaid || h.ledgerRepo.updatedID != "tr_1" {
		t.Errorf("transfer not finalized: %s %s", h.ledgerRepo.updatedStatus, h.ledgerRepo.updatedID)
	}
	if !h.bookingsRepo.payoutSet || h.bookingsRepo.payoutID != "tr_1" {
		t.Error("booking payout fields not set")
	}
}

func TestService_ReleaseAlreadyTransferred(t *testing.T) {
	booking := deliveredBooking()
	h := newHarness(t, booking)
	h.ledgerRepo.activeTransfer = &models.Transfer{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Status:    enums.TransferStatusPaid,
	}

	result, err := h.svc.Release(context.Background(), ReleaseInput{
		BookingID: booking.ID,
		Reason:    enums.ReleaseReasonDeliveryConfirmed,
	})
	if err != nil {
		t.Fatalf("release error: %v", err)
	}
	if !result.AlreadyTransferred {
		t.Fatal("expected already transferred")
	}
	if h.rail.sentReq != nil {
		t.Error("no provider call expected when a transfer already exists")
	}
}

func TestService_ReleaseConcurrentLoser(t *testing.T) {
	booking := deliveredBooking()
	h := newHarness(t, booking)

	winner := &models.Transfer{ID: uuid.New(), BookingID: booking.ID, Status: enums.TransferStatusPending}
	h.ledgerRepo.createErr = &pgconn.PgError{
		Code:           "23505",
		ConstraintName: models.TransferActiveConstraint,
	}

	// the loser's insert fails, then it looks up the winner's row
	calls := 0
	h.svc.ledger = &concurrentLedger{inner: h.ledgerRepo, winner: winner, calls: &calls}

	result, err := h.svc.Release(context.Background(), ReleaseInput{
		BookingID: booking.ID,
		Reason:    enums.ReleaseReasonDeliveryConfirmed,
	})
	if err != nil {
		t.Fatalf("release error: %v", err)
	}
	if !result.AlreadyTransferred || result.TransferID != winner.ID {
		t.Fatalf("expected winner's transfer, got %+v", result)
	}
	if h.rail.sentReq != nil {
		t.Error("loser must not reach the provider")
	}
}

// concurrentLedger reports no active transfer on the guard pass, fails the
// insert with a unique violation, then returns the winner's row.
type concurrentLedger struct {
	ledger.Repository
	inner  *fakeLedgerRepo
	winner *models.Transfer
	calls  *int
}

func (c *concurrentLedger) WithTx(tx *gorm.DB) ledger.Repository { return c }

func (c *concurrentLedger) FindSucceededHoldByBookingID(ctx context.Context, id uuid.UUID) (*models.PaymentHold, error) {
	return c.inner.FindSucceededHoldByBookingID(ctx, id)
}

func (c *concurrentLedger) FindActiveTransferByBookingID(_ context.Context, _ uuid.UUID) (*models.Transfer, error) {
	*c.calls++
	if *c.calls == 1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
	}
	return c.winner, nil
}

func (c *concurrentLedger) CreateTransfer(_ context.Context, _ *models.Transfer) error {
	return c.inner.createErr
}

func TestService_ReleaseGuards(t *testing.T) {
	t.Run("dispute blocks release", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Disputed = true
		h := newHarness(t, booking)

		_, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonDeliveryConfirmed,
		})
		if got := pkgerrors.Reason(err); got != payout.ReasonDisputeOpen {
			t.Fatalf("reason = %q, want dispute_open", got)
		}
		if h.ledgerRepo.created != nil || h.rail.sentReq != nil {
			t.Error("guards must be side-effect free")
		}
	})

	t.Run("admin bypass skips only the dispute guard", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Disputed = true
		h := newHarness(t, booking)

		result, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID:          booking.ID,
			Reason:             enums.ReleaseReasonAdminForced,
			BypassDisputeGuard: true,
		})
		if err != nil {
			t.Fatalf("release error: %v", err)
		}
		if !result.Success {
			t.Fatalf("expected success, got %+v", result)
		}
	})

	t.Run("payment never captured", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.ledgerRepo.hold = nil

		_, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonDeliveryConfirmed,
		})
		if got := pkgerrors.Reason(err); got != payout.ReasonPaymentNotCaptured {
			t.Fatalf("reason = %q, want payment_not_captured", got)
		}
	})

	t.Run("no payout account", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.accountsRepo.account = nil

		_, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonDeliveryConfirmed,
		})
		if got := pkgerrors.Reason(err); got != payout.ReasonWalletNotConfigured {
			t.Fatalf("reason = %q, want wallet_not_configured", got)
		}
	})

	t.Run("rail validation refusal propagates", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.rail.validateErr = pkgerrors.New(pkgerrors.CodePrecondition, "payouts disabled").
			WithReason(payout.ReasonPayoutsNotEnabled)

		_, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonDeliveryConfirmed,
		})
		if got := pkgerrors.Reason(err); got != payout.ReasonPayoutsNotEnabled {
			t.Fatalf("reason = %q, want payouts_not_enabled", got)
		}
	})

	t.Run("zero net amount", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.ledgerRepo.hold.PlatformFee = h.ledgerRepo.hold.AmountHeld

		_, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonDeliveryConfirmed,
		})
		if got := pkgerrors.Reason(err); got != payout.ReasonInvalidTransferAmount {
			t.Fatalf("reason = %q, want invalid_transfer_amount", got)
		}
	})

	t.Run("dispute answers before the earlier transfer", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Disputed = true
		h := newHarness(t, booking)
		h.ledgerRepo.activeTransfer = &models.Transfer{
			ID:        uuid.New(),
			BookingID: booking.ID,
			Status:    enums.TransferStatusPaid,
		}

		_, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID: booking.ID,
			Reason:    enums.ReleaseReasonDeliveryConfirmed,
		})
		if got := pkgerrors.Reason(err); got != payout.ReasonDisputeOpen {
			t.Fatalf("reason = %q, want dispute_open", got)
		}
	})

	t.Run("admin bypass still sees the earlier transfer", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Disputed = true
		h := newHarness(t, booking)
		existing := &models.Transfer{
			ID:        uuid.New(),
			BookingID: booking.ID,
			Status:    enums.TransferStatusPaid,
		}
		h.ledgerRepo.activeTransfer = existing

		result, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID:          booking.ID,
			Reason:             enums.ReleaseReasonAdminForced,
			BypassDisputeGuard: true,
		})
		if err != nil {
			t.Fatalf("release error: %v", err)
		}
		if !result.AlreadyTransferred || result.TransferID != existing.ID {
			t.Fatalf("expected the earlier transfer, got %+v", result)
		}
	})

	t.Run("admin release before delivery", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Status = enums.BookingStatusInTransit
		booking.Disputed = true
		h := newHarness(t, booking)

		result, err := h.svc.Release(context.Background(), ReleaseInput{
			BookingID:          booking.ID,
			Reason:             enums.ReleaseReasonAdminForced,
			BypassDisputeGuard: true,
		})
		if err != nil {
			t.Fatalf("release error: %v", err)
		}
		if !result.Success {
			t.Fatalf("expected success, got %+v", result)
		}
	})
}

func TestService_ReleaseAsyncPayout(t *testing.T) {
	booking := deliveredBooking()
	h := newHarness(t, booking)
	h.rail.result = &payout.TransferResult{
		ProviderTransferID: "901",
		Status:             enums.TransferStatusPending,
	}

	result, err := h.svc.Release(context.Background(), ReleaseInput{
		BookingID: booking.ID,
		Reason:    enums.ReleaseReasonDeliveryConfirmed,
	})
	if err != nil {
		t.Fatalf("release error: %v", err)
	}
	if !result.Success || result.Status != enums.TransferStatusPending {
		t.Fatalf("unexpected result: %+v", result)
	}
	if h.ledgerRepo.updatedStatus != enums.TransferStatusPending || h.ledgerRepo.updatedID != "901" {
		t.Errorf("transfer not recorded pending: %s %s", h.ledgerRepo.updatedStatus, h.ledgerRepo.updatedID)
	}
	if h.bookingsRepo.payoutSet {
		t.Error("booking payout must not be stamped before the wallet payout lands")
	}
}

func TestService_ReconcileTransfer(t *testing.T) {
	pendingWalletTransfer := func(bookingID uuid.UUID) *models.Transfer {
		return &models.Transfer{
			ID:                 uuid.New(),
			BookingID:          bookingID,
			Provider:           enums.PayoutProviderFedapay,
			ProviderTransferID: "901",
			Status:             enums.TransferStatusPending,
		}
	}

	t.Run("landed payout stamps the booking", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.ledgerRepo.activeTransfer = pendingWalletTransfer(booking.ID)
		h.wallet.payout = &fedapay.Payout{ID: 901, Status: "completed"}

		result, err := h.svc.ReconcileTransfer(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("reconcile error: %v", err)
		}
		if !result.Success || result.Status != enums.TransferStatusPaid {
			t.Fatalf("unexpected result: %+v", result)
		}
		if h.wallet.queried != 901 {
			t.Errorf("queried payout %d, want 901", h.wallet.queried)
		}
		if h.ledgerRepo.updatedStatus != enums.TransferStatusPaid {
			t.Errorf("transfer status = %s, want paid", h.ledgerRepo.updatedStatus)
		}
		if !h.bookingsRepo.payoutSet || h.bookingsRepo.payoutID != "901" {
			t.Error("booking payout fields not set")
		}
	})

	t.Run("failed payout frees the slot", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.ledgerRepo.activeTransfer = pendingWalletTransfer(booking.ID)
		h.wallet.payout = &fedapay.Payout{ID: 901, Status: "failed"}

		result, err := h.svc.ReconcileTransfer(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("reconcile error: %v", err)
		}
		if result.Success || result.Status != enums.TransferStatusFailed {
			t.Fatalf("unexpected result: %+v", result)
		}
		if h.ledgerRepo.updatedStatus != enums.TransferStatusFailed {
			t.Errorf("transfer status = %s, want failed so a retry can claim the slot", h.ledgerRepo.updatedStatus)
		}
		if h.bookingsRepo.payoutSet {
			t.Error("booking payout must not be stamped for a failed payout")
		}
	})

	t.Run("still processing leaves everything alone", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.ledgerRepo.activeTransfer = pendingWalletTransfer(booking.ID)
		h.wallet.payout = &fedapay.Payout{ID: 901, Status: "started"}

		result, err := h.svc.ReconcileTransfer(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("reconcile error: %v", err)
		}
		if result.Success || result.Status != enums.TransferStatusPending {
			t.Fatalf("unexpected result: %+v", result)
		}
		if h.bookingsRepo.payoutSet {
			t.Error("booking payout must not be stamped while processing")
		}
	})

	t.Run("bank transfers are not re-read", func(t *testing.T) {
		booking := deliveredBooking()
		h := newHarness(t, booking)
		h.ledgerRepo.activeTransfer = &models.Transfer{
			ID:                 uuid.New(),
			BookingID:          booking.ID,
			Provider:           enums.PayoutProviderStripe,
			ProviderTransferID: "tr_1",
			Status:             enums.TransferStatusPending,
		}

		result, err := h.svc.ReconcileTransfer(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("reconcile error: %v", err)
		}
		if result.Status != enums.TransferStatusPending {
			t.Fatalf("unexpected result: %+v", result)
		}
		if h.wallet.queried != 0 {
			t.Error("no provider call expected for a bank transfer")
		}
	})
}

func TestService_ReleaseProviderFailure(t *testing.T) {
	booking := deliveredBooking()
	h := newHarness(t, booking)
	h.rail.sendErr = errors.New("provider down")

	_, err := h.svc.Release(context.Background(), ReleaseInput{
		BookingID: booking.ID,
		Reason:    enums.ReleaseReasonDeliveryConfirmed,
	})
	if err == nil {
		t.Fatal("expected provider error")
	}
	if h.ledgerRepo.created == nil {
		t.Fatal("transfer row should have been claimed before the send")
	}
	if h.ledgerRepo.updatedStatus != enums.TransferStatusFailed {
		t.Errorf("transfer status = %s, want failed so a retry can claim the slot", h.ledgerRepo.updatedStatus)
	}
	if h.bookingsRepo.payoutSet {
		t.Error("booking payout must not be set on provider failure")
	}
}

func TestService_ConfirmDelivery(t *testing.T) {
	t.Run("confirms and releases", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Status = enums.BookingStatusInTransit
		h := newHarness(t, booking)

		confirmation, err := h.svc.ConfirmDelivery(context.Background(), booking.ID, booking.RequesterID)
		if err != nil {
			t.Fatalf("confirm delivery error: %v", err)
		}
		if !h.bookingsRepo.deliveredSet {
			t.Error("delivery must be recorded before the release attempt")
		}
		if !confirmation.Released {
			t.Fatalf("expected release, got %+v", confirmation)
		}
		if h.ledgerRepo.created == nil || h.ledgerRepo.created.Reason != enums.ReleaseReasonDeliveryConfirmed {
			t.Errorf("transfer reason = %v, want delivery_confirmed", h.ledgerRepo.created)
		}
	})

	t.Run("only the requester confirms", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Status = enums.BookingStatusInTransit
		h := newHarness(t, booking)

		_, err := h.svc.ConfirmDelivery(context.Background(), booking.ID, booking.TravelerID)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
		if h.bookingsRepo.deliveredSet {
			t.Error("delivery must not be recorded for a stranger")
		}
	})

	t.Run("refused release keeps the confirmation", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Status = enums.BookingStatusInTransit
		h := newHarness(t, booking)
		h.accountsRepo.account = nil

		confirmation, err := h.svc.ConfirmDelivery(context.Background(), booking.ID, booking.RequesterID)
		if err != nil {
			t.Fatalf("confirmation should survive a refused release, got %v", err)
		}
		if !h.bookingsRepo.deliveredSet {
			t.Error("delivery must stay recorded")
		}
		if confirmation.Released {
			t.Error("release should have been refused")
		}
		if confirmation.RefusalReason != payout.ReasonWalletNotConfigured {
			t.Errorf("refusal reason = %q, want %q", confirmation.RefusalReason, payout.ReasonWalletNotConfigured)
		}
	})

	t.Run("already delivered is idempotent", func(t *testing.T) {
		booking := deliveredBooking()
		deliveredAt := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)
		booking.DeliveredAt = &deliveredAt
		h := newHarness(t, booking)

		confirmation, err := h.svc.ConfirmDelivery(context.Background(), booking.ID, booking.RequesterID)
		if err != nil {
			t.Fatalf("confirm delivery error: %v", err)
		}
		if h.bookingsRepo.deliveredSet {
			t.Error("delivered timestamp must not be rewritten")
		}
		if !confirmation.DeliveredAt.Equal(deliveredAt) {
			t.Errorf("delivered at = %v, want original %v", confirmation.DeliveredAt, deliveredAt)
		}
		if !confirmation.Released {
			t.Error("release should still run for an already delivered booking")
		}
	})

	t.Run("rejects bookings not yet underway", func(t *testing.T) {
		booking := deliveredBooking()
		booking.Status = enums.BookingStatusAccepted
		h := newHarness(t, booking)

		_, err := h.svc.ConfirmDelivery(context.Background(), booking.ID, booking.RequesterID)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
}
