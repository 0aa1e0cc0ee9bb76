package settlement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/internal/accounts"
	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/internal/notify"
	"github.com/AmielDylan/sendbox-sub002/internal/payout"
	"github.com/AmielDylan/sendbox-sub002/pkg/db"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/fedapay"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
	"github.com/AmielDylan/sendbox-sub002/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type railRegistry interface {
	ForAccount(account *models.PayoutAccount) (payout.Rail, error)
}

type walletStatusReader interface {
	GetPayout(ctx context.Context, id int64) (*fedapay.Payout, error)
}

// ReleaseInput describes one release attempt.
type ReleaseInput struct {
	BookingID uuid.UUID
	Reason    enums.ReleaseReason

	// BypassDisputeGuard is set only by the admin manual release path.
	// Every other guard still applies.
	BypassDisputeGuard bool
}

// ReleaseResult reports what happened to the traveler's money.
type ReleaseResult struct {
	Success            bool
	AlreadyTransferred bool
	TransferID         uuid.UUID
	Status             enums.TransferStatus
}

// ServiceParams groups dependencies for the settlement service.
type ServiceParams struct {
	Tx       txRunner
	Bookings bookings.Repository
	Ledger   ledger.Repository
	Accounts accounts.Repository
	Rails    railRegistry
	Wallet   walletStatusReader
	Metrics  *metrics.SettlementMetrics
	Notifier notify.Notifier
	Logger   *logger.Logger
}

// Service releases escrowed funds to travelers. All guards run before any
// side effect; the partial unique index on active transfers makes the
// release at-most-once even under concurrent triggers.
type Service struct {
	tx       txRunner
	bookings bookings.Repository
	ledger   ledger.Repository
	accounts accounts.Repository
	rails    railRegistry
	wallet   walletStatusReader
	metrics  *metrics.SettlementMetrics
	notifier notify.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a settlement service.
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
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Rails == nil {
		return nil, fmt.Errorf("rail registry required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet client required")
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
		accounts: params.Accounts,
		rails:    params.Rails,
		wallet:   params.Wallet,
		metrics:  params.Metrics,
		notifier: notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// TransferIdempotencyKey is deterministic per booking so provider retries
// of the same release collapse into one transfer.
func TransferIdempotencyKey(bookingID uuid.UUID) string {
	return "transfer:" + bookingID.String()
}

// Release pays the traveler their net share for a delivered booking. The
// guard chain is strictly ordered and free of side effects; only after
// every guard passes does money move.
func (s *Service) Release(ctx context.Context, input ReleaseInput) (*ReleaseResult, error) {
	started := s.now()
	result, err := s.release(ctx, input)
	s.metrics.ObserveDuration("release", s.now().Sub(started))
	switch {
	case err != nil && pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodePrecondition:
		s.metrics.IncRelease("refused")
	case err != nil:
		s.metrics.IncRelease("failed")
	case result.AlreadyTransferred:
		s.metrics.IncRelease("already_transferred")
	default:
		s.metrics.IncRelease("released")
	}
	return result, err
}

func (s *Service) release(ctx context.Context, input ReleaseInput) (*ReleaseResult, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid release reason")
	}

	booking, err := s.bookings.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	// The dispute guard comes before the already-transferred check: a
	// repeated trigger on a disputed booking must answer with the dispute,
	// not with the earlier transfer.
	if booking.Disputed && !input.BypassDisputeGuard {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "booking has an open dispute").
			WithReason(payout.ReasonDisputeOpen)
	}

	// Repeated triggers where the money already moved (or is moving) report
	// that instead of failing.
	if existing, err := s.ledger.FindActiveTransferByBookingID(ctx, input.BookingID); err == nil {
		return &ReleaseResult{
			AlreadyTransferred: true,
			TransferID:         existing.ID,
			Status:             existing.Status,
		}, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	hold, err := s.ledger.FindSucceededHoldByBookingID(ctx, input.BookingID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "payment was never captured").
				WithReason(payout.ReasonPaymentNotCaptured)
		}
		return nil, err
	}

	account, err := s.accounts.FindByUserID(ctx, booking.TravelerID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	rail, err := s.rails.ForAccount(account)
	if err != nil {
		return nil, err
	}
	if err := rail.Validate(ctx, account, booking.Currency); err != nil {
		return nil, err
	}

	net := hold.AmountHeld.Sub(hold.PlatformFee)
	if !net.IsPositive() || net.GreaterThan(hold.AmountHeld) {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition,
			fmt.Sprintf("transfer amount %s is invalid", net)).
			WithReason(payout.ReasonInvalidTransferAmount)
	}

	// All guards passed; claim the booking. The partial unique index on
	// active transfers is the serialization point: exactly one concurrent
	// caller gets past this insert.
	transfer := &models.Transfer{
		BookingID:   booking.ID,
		Provider:    rail.Provider(),
		Amount:      net,
		Currency:    booking.Currency,
		Status:      enums.TransferStatusPending,
		Reason:      input.Reason,
		AttemptedAt: s.now().UTC(),
	}
	if err := s.ledger.CreateTransfer(ctx, transfer); err != nil {
		if db.IsUniqueViolation(err, models.TransferActiveConstraint) {
			winner, findErr := s.ledger.FindActiveTransferByBookingID(ctx, input.BookingID)
			if findErr != nil {
				return nil, findErr
			}
			return &ReleaseResult{
				AlreadyTransferred: true,
				TransferID:         winner.ID,
				Status:             winner.Status,
			}, nil
		}
		return nil, err
	}

	sent, err := rail.Send(ctx, payout.TransferRequest{
		BookingID:      booking.ID,
		Account:        account,
		Amount:         net,
		Currency:       booking.Currency,
		IdempotencyKey: TransferIdempotencyKey(booking.ID),
	})
	if err != nil {
		// Freeing the index slot lets a later retry attempt the payout
		// again; the idempotency key keeps the provider side single.
		if updateErr := s.ledger.UpdateTransfer(ctx, transfer.ID, enums.TransferStatusFailed, ""); updateErr != nil {
			s.logg.Error(ctx, "marking transfer failed", updateErr)
		}
		s.notifier.Publish(ctx, notify.Event{
			Type:      notify.EventReleaseRefused,
			BookingID: booking.ID,
			UserID:    booking.TravelerID,
			Reason:    "provider_error",
		})
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerRepo := s.ledger.WithTx(tx)
		if err := ledgerRepo.UpdateTransfer(ctx, transfer.ID, sent.Status, sent.ProviderTransferID); err != nil {
			return err
		}
		// The booking is only stamped once the money actually landed.
		// Wallet payouts settle asynchronously; the reconcile job stamps
		// those when the provider reports them paid.
		if sent.Status != enums.TransferStatusPaid {
			return nil
		}
		return s.bookings.WithTx(tx).SetPayout(ctx, booking.ID, sent.ProviderTransferID, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventFundsReleased,
		BookingID: booking.ID,
		UserID:    booking.TravelerID,
		Reason:    string(input.Reason),
		Amount:    net.Round(2).String(),
		Currency:  string(booking.Currency),
	})

	ctx = s.logg.WithBookingID(ctx, booking.ID.String())
	ctx = s.logg.WithTransferID(ctx, transfer.ID.String())
	s.logg.Info(ctx, fmt.Sprintf("released %s %s to traveler via %s (%s)",
		net.Round(2), booking.Currency, rail.Provider(), input.Reason))

	return &ReleaseResult{
		Success:    true,
		TransferID: transfer.ID,
		Status:     sent.Status,
	}, nil
}

// ReconcileTransfer re-reads the provider's view of a booking's active
// transfer and aligns the ledger with it. Wallet payouts settle
// asynchronously; the reconcile worker calls this for rows stuck pending.
// The booking is stamped only once the payout lands; a failed payout frees
// the active-transfer slot so a later trigger can retry.
func (s *Service) ReconcileTransfer(ctx context.Context, bookingID uuid.UUID) (*ReleaseResult, error) {
	transfer, err := s.ledger.FindActiveTransferByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != enums.TransferStatusPending {
		return &ReleaseResult{Success: true, TransferID: transfer.ID, Status: transfer.Status}, nil
	}
	if transfer.Provider != enums.PayoutProviderFedapay {
		// Bank transfers settle synchronously on send; nothing to re-read.
		return &ReleaseResult{TransferID: transfer.ID, Status: transfer.Status}, nil
	}

	payoutID, err := strconv.ParseInt(transfer.ProviderTransferID, 10, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIntegrity, err, "malformed provider transfer id")
	}
	remote, err := s.wallet.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching fedapay payout")
	}

	status := payout.NormalizeWalletStatus(remote.Status)
	switch status {
	case enums.TransferStatusPaid:
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.ledger.WithTx(tx).UpdateTransfer(ctx, transfer.ID, enums.TransferStatusPaid, ""); err != nil {
				return err
			}
			return s.bookings.WithTx(tx).SetPayout(ctx, transfer.BookingID, transfer.ProviderTransferID, s.now().UTC())
		})
		if err != nil {
			return nil, err
		}
		ctx = s.logg.WithBookingID(ctx, transfer.BookingID.String())
		ctx = s.logg.WithTransferID(ctx, transfer.ID.String())
		s.logg.Info(ctx, "wallet payout landed, booking stamped")
	case enums.TransferStatusFailed:
		if err := s.ledger.UpdateTransfer(ctx, transfer.ID, enums.TransferStatusFailed, ""); err != nil {
			return nil, err
		}
		if booking, findErr := s.bookings.FindByID(ctx, transfer.BookingID); findErr == nil {
			s.notifier.Publish(ctx, notify.Event{
				Type:      notify.EventReleaseRefused,
				BookingID: transfer.BookingID,
				UserID:    booking.TravelerID,
				Reason:    "wallet_payout_failed",
			})
		}
		ctx = s.logg.WithBookingID(ctx, transfer.BookingID.String())
		s.logg.Warn(ctx, fmt.Sprintf("wallet payout %s failed at the provider", transfer.ProviderTransferID))
	}

	return &ReleaseResult{
		Success:    status == enums.TransferStatusPaid,
		TransferID: transfer.ID,
		Status:     status,
	}, nil
}

// DeliveryConfirmation reports a recorded delivery and what happened to the
// release attempt that followed it.
type DeliveryConfirmation struct {
	BookingID     uuid.UUID
	DeliveredAt   time.Time
	Released      bool
	RefusalReason string
	TransferID    uuid.UUID
}

// ConfirmDelivery records the requester's delivery confirmation and attempts
// the release immediately. A refused release does not undo the confirmation;
// the funds stay held and the auto-release worker retries later.
func (s *Service) ConfirmDelivery(ctx context.Context, bookingID, actorID uuid.UUID) (*DeliveryConfirmation, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.RequesterID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can confirm delivery")
	}

	confirmedAt := s.now().UTC()
	switch booking.Status {
	case enums.BookingStatusDelivered:
		if booking.DeliveredAt != nil {
			confirmedAt = *booking.DeliveredAt
		}
	case enums.BookingStatusInTransit, enums.BookingStatusDeposited:
		if err := s.bookings.SetDelivered(ctx, booking.ID, confirmedAt); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording delivery")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("booking is %s, delivery cannot be confirmed", booking.Status))
	}

	confirmation := &DeliveryConfirmation{
		BookingID:   booking.ID,
		DeliveredAt: confirmedAt,
	}

	result, err := s.Release(ctx, ReleaseInput{
		BookingID: booking.ID,
		Reason:    enums.ReleaseReasonDeliveryConfirmed,
	})
	switch {
	case err != nil:
		// The confirmation stands either way; a refused or failed release
		// leaves the hold in place for a later attempt.
		confirmation.RefusalReason = pkgerrors.Reason(err)
		ctx = s.logg.WithBookingID(ctx, booking.ID.String())
		s.logg.Warn(ctx, fmt.Sprintf("release after delivery confirmation did not complete: %v", err))
	case result.AlreadyTransferred, result.Success:
		confirmation.Released = true
		confirmation.TransferID = result.TransferID
	}

	return confirmation, nil
}

func isNotFound(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeNotFound
}
