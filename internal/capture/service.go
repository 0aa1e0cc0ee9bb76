package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/internal/notify"
	"github.com/AmielDylan/sendbox-sub002/internal/payout"
	"github.com/AmielDylan/sendbox-sub002/internal/pricing"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
	"github.com/AmielDylan/sendbox-sub002/pkg/metrics"
	pkgstripe "github.com/AmielDylan/sendbox-sub002/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IdentityReader reports the requester's verification state. Verification
// itself is owned by the identity subsystem; capture only gates on it.
type IdentityReader interface {
	GetKYCStatus(ctx context.Context, id uuid.UUID) (enums.KYCStatus, error)
}

// ReasonIdentityNotVerified is the refusal code for captures attempted
// before the requester's identity verification is approved. The error
// details carry the exact verification state for user messaging.
const ReasonIdentityNotVerified = "identity_not_verified"

// CaptureResult reports the outcome of a capture attempt.
type CaptureResult struct {
	Booking         *models.Booking
	Hold            *models.PaymentHold
	AlreadyCaptured bool
	ClientSecret    *string
}

// ServiceParams groups dependencies for the capture service.
type ServiceParams struct {
	Tx       txRunner
	Bookings bookings.Repository
	Ledger   ledger.Repository
	Identity IdentityReader
	Payments pkgstripe.PaymentOperations
	Metrics  *metrics.SettlementMetrics
	Notifier notify.Notifier
	Logger   *logger.Logger
}

// Service orchestrates payment capture: price the booking, hold the funds
// at the provider, snapshot the amounts.
type Service struct {
	tx       txRunner
	bookings bookings.Repository
	ledger   ledger.Repository
	identity IdentityReader
	payments pkgstripe.PaymentOperations
	metrics  *metrics.SettlementMetrics
	notifier notify.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a capture service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity reader required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment operations required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		tx:       params.Tx,
		bookings: params.Bookings,
		ledger:   params.Ledger,
		identity: params.Identity,
		payments: params.Payments,
		metrics:  params.Metrics,
		notifier: notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// CaptureIdempotencyKey is deterministic per booking, so a retried capture
// reuses the provider-side hold instead of creating a second one.
func CaptureIdempotencyKey(bookingID uuid.UUID) string {
	return "capture:" + bookingID.String()
}

// CaptureBookingPayment charges the requester and places the funds in
// escrow. Only the requester may trigger it, only from the accepted state,
// and only once: a booking with paid_at set returns the existing hold.
func (s *Service) CaptureBookingPayment(ctx context.Context, bookingID, actorID uuid.UUID) (*CaptureResult, error) {
	started := s.now()
	result, err := s.capture(ctx, bookingID, actorID)
	s.metrics.ObserveDuration("capture", s.now().Sub(started))
	switch {
	case err != nil:
		s.metrics.IncCapture("failed")
	case result.AlreadyCaptured:
		s.metrics.IncCapture("already_paid")
	default:
		s.metrics.IncCapture("succeeded")
	}
	return result, err
}

func (s *Service) capture(ctx context.Context, bookingID, actorID uuid.UUID) (*CaptureResult, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.RequesterID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can pay for a booking")
	}

	if booking.PaidAt != nil {
		hold, err := s.ledger.FindSucceededHoldByBookingID(ctx, bookingID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "booking paid but no succeeded hold")
		}
		return &CaptureResult{Booking: booking, Hold: hold, AlreadyCaptured: true}, nil
	}
	if booking.Status != enums.BookingStatusAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("booking in status %s cannot be paid", booking.Status))
	}

	// A retried capture returns the earlier attempt's handle instead of
	// opening a second hold. Failed holds do not block a fresh attempt.
	holds, err := s.ledger.ListHoldsByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for i := len(holds) - 1; i >= 0; i-- {
		if holds[i].Status != enums.HoldStatusFailed {
			return s.reconcile(ctx, booking, &holds[i])
		}
	}

	kycStatus, err := s.identity.GetKYCStatus(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if kycStatus != enums.KYCStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "identity verification is not approved").
			WithReason(ReasonIdentityNotVerified).
			WithDetails(map[string]any{"kyc_status": string(kycStatus)})
	}

	breakdown := pricing.ComputeDecimal(
		booking.WeightKG,
		booking.PricePerKG,
		booking.DeclaredValue,
		booking.InsuranceOpted,
	)
	if !breakdown.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking total must be positive")
	}

	intent, err := s.createHoldIntent(ctx, booking, breakdown)
	if err != nil {
		return nil, err
	}

	hold := &models.PaymentHold{
		BookingID:      booking.ID,
		ProviderHoldID: intent.ID,
		AmountHeld:     breakdown.Total,
		PlatformFee:    breakdown.PlatformFee(),
		Currency:       booking.Currency,
		Status:         enums.HoldStatusPending,
	}
	if intent.ClientSecret != "" {
		secret := intent.ClientSecret
		hold.ClientSecret = &secret
	}

	settled := intent.Status == stripe.PaymentIntentStatusSucceeded
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerRepo := s.ledger.WithTx(tx)
		if err := ledgerRepo.CreateHold(ctx, hold); err != nil {
			return err
		}
		if !settled {
			return nil
		}
		return s.finalize(ctx, tx, booking, hold, breakdown)
	})
	if err != nil {
		return nil, err
	}

	if settled {
		s.notifier.Publish(ctx, notify.Event{
			Type:      notify.EventPaymentCaptured,
			BookingID: booking.ID,
			UserID:    booking.RequesterID,
			Amount:    breakdown.Total.Round(2).String(),
			Currency:  string(booking.Currency),
		})
		booking, err = s.bookings.FindByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
	}

	ctx = s.logg.WithBookingID(ctx, booking.ID.String())
	s.logg.Info(ctx, fmt.Sprintf("payment capture %s (hold %s)", intent.Status, intent.ID))

	return &CaptureResult{Booking: booking, Hold: hold, ClientSecret: hold.ClientSecret}, nil
}

// ReconcileHold re-reads the provider's view of a pending hold and aligns
// the ledger with it. Called after client-side confirmation and by the
// reconciliation worker for holds that missed their follow-up.
func (s *Service) ReconcileHold(ctx context.Context, bookingID uuid.UUID) (*CaptureResult, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaidAt != nil {
		hold, err := s.ledger.FindSucceededHoldByBookingID(ctx, bookingID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "booking paid but no succeeded hold")
		}
		return &CaptureResult{Booking: booking, Hold: hold, AlreadyCaptured: true}, nil
	}
	if booking.PaymentHoldID == nil {
		holds, err := s.ledger.ListHoldsByBookingID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if len(holds) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no hold to reconcile")
		}
		return s.reconcile(ctx, booking, &holds[len(holds)-1])
	}

	hold, err := s.ledger.FindHoldByProviderID(ctx, *booking.PaymentHoldID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, booking, hold)
}

func (s *Service) reconcile(ctx context.Context, booking *models.Booking, hold *models.PaymentHold) (*CaptureResult, error) {
	intent, err := s.payments.GetPaymentIntent(ctx, hold.ProviderHoldID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching payment intent")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		breakdown := pricing.ComputeDecimal(
			booking.WeightKG,
			booking.PricePerKG,
			booking.DeclaredValue,
			booking.InsuranceOpted,
		)
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.finalize(ctx, tx, booking, hold, breakdown)
		})
		if err != nil {
			return nil, err
		}
		hold.Status = enums.HoldStatusSucceeded
		s.notifier.Publish(ctx, notify.Event{
			Type:      notify.EventPaymentCaptured,
			BookingID: booking.ID,
			UserID:    booking.RequesterID,
			Amount:    breakdown.Total.Round(2).String(),
			Currency:  string(booking.Currency),
		})
		booking, err = s.bookings.FindByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
	case stripe.PaymentIntentStatusCanceled:
		if err := s.ledger.UpdateHoldStatus(ctx, hold.ID, enums.HoldStatusFailed); err != nil {
			return nil, err
		}
		hold.Status = enums.HoldStatusFailed
	}

	return &CaptureResult{Booking: booking, Hold: hold, ClientSecret: hold.ClientSecret}, nil
}

// finalize snapshots the pricing onto the booking and marks the hold
// succeeded, in one transaction. After it commits the amounts are frozen.
func (s *Service) finalize(ctx context.Context, tx *gorm.DB, booking *models.Booking, hold *models.PaymentHold, breakdown pricing.Breakdown) error {
	ledgerRepo := s.ledger.WithTx(tx)
	bookingsRepo := s.bookings.WithTx(tx)

	if err := ledgerRepo.UpdateHoldStatus(ctx, hold.ID, enums.HoldStatusSucceeded); err != nil {
		return err
	}
	return bookingsRepo.SetCapturedPricing(ctx, booking.ID, bookings.CapturedPricing{
		TransportPrice:    breakdown.TransportPrice,
		CommissionAmount:  breakdown.Commission,
		CommissionRate:    breakdown.CommissionRate,
		InsurancePremium:  breakdown.InsurancePremium,
		InsuranceCoverage: breakdown.InsuranceCoverage,
		PaymentHoldID:     hold.ProviderHoldID,
		PaidAt:            s.now().UTC(),
	})
}

func (s *Service) createHoldIntent(ctx context.Context, booking *models.Booking, breakdown pricing.Breakdown) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(payout.MinorUnits(breakdown.Total, booking.Currency)),
		Currency: stripe.String(booking.Currency.Lower()),
		TransferGroup: stripe.String(
			fmt.Sprintf("booking_%s", booking.ID),
		),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.SetIdempotencyKey(CaptureIdempotencyKey(booking.ID))
	params.AddMetadata("booking_id", booking.ID.String())
	params.AddMetadata("requester_id", booking.RequesterID.String())

	intent, err := s.payments.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}
	return intent, nil
}
