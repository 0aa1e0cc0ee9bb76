package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/internal/audit"
	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/disputes"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/internal/notify"
	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
	pkgstripe "github.com/AmielDylan/sendbox-sub002/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type releaser interface {
	Release(ctx context.Context, input settlement.ReleaseInput) (*settlement.ReleaseResult, error)
}

// Actor identifies the admin performing an override, with the request
// metadata the audit trail records.
type Actor struct {
	UserID    uuid.UUID
	IP        string
	UserAgent string
}

// ServiceParams groups dependencies for the admin service.
type ServiceParams struct {
	Tx         txRunner
	Bookings   bookings.Repository
	Ledger     ledger.Repository
	Disputes   disputes.Repository
	Audit      audit.Repository
	Settlement releaser
	Payments   pkgstripe.PaymentOperations
	Notifier   notify.Notifier
	Logger     *logger.Logger
}

// Service is the admin override path: refunds, dispute management, and
// manual releases. Every operation lands in the audit log.
type Service struct {
	tx         txRunner
	bookings   bookings.Repository
	ledger     ledger.Repository
	disputes   disputes.Repository
	audit      audit.Repository
	settlement releaser
	payments   pkgstripe.PaymentOperations
	notifier   notify.Notifier
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds an admin service.
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
	if params.Disputes == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
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
		tx:         params.Tx,
		bookings:   params.Bookings,
		ledger:     params.Ledger,
		disputes:   params.Disputes,
		audit:      params.Audit,
		settlement: params.Settlement,
		payments:   params.Payments,
		notifier:   notifier,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// MarkDisputed freezes settlement for a booking. The delivery state is kept
// as is so resolving the dispute restores the normal release path.
func (s *Service) MarkDisputed(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*models.Dispute, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Disputed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "booking already disputed")
	}
	if booking.PayoutAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "funds already released")
	}

	dispute := &models.Dispute{
		BookingID:  bookingID,
		OpenedByID: actor.UserID,
		Reason:     reason,
		Status:     enums.DisputeStatusOpen,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.disputes.WithTx(tx).Create(ctx, dispute); err != nil {
			return err
		}
		if err := s.bookings.WithTx(tx).SetDisputed(ctx, bookingID, true, &reason); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, enums.AuditActionMarkDisputed, bookingID, reason, nil)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventBookingDisputed,
		BookingID: bookingID,
		UserID:    booking.TravelerID,
		Reason:    reason,
	})
	return dispute, nil
}

// ResolveDispute closes the open dispute and unfreezes settlement.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, bookingID uuid.UUID, note string) error {
	dispute, err := s.disputes.FindOpenByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.disputes.WithTx(tx).Resolve(ctx, dispute.ID, s.now().UTC()); err != nil {
			return err
		}
		if err := s.bookings.WithTx(tx).SetDisputed(ctx, bookingID, false, nil); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, enums.AuditActionResolveDispute, bookingID, note, nil)
	})
}

// ForceRefund returns the held funds to the requester. Only possible while
// the money is still in escrow; after release the transfer owns it.
func (s *Service) ForceRefund(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) error {
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if _, err := s.ledger.FindActiveTransferByBookingID(ctx, bookingID); err == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "funds already released to traveler")
	} else if !isNotFound(err) {
		return err
	}

	hold, err := s.ledger.FindSucceededHoldByBookingID(ctx, bookingID)
	if err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "nothing held for this booking")
		}
		return err
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(hold.ProviderHoldID),
	}
	params.SetIdempotencyKey("refund:" + bookingID.String())
	params.AddMetadata("booking_id", bookingID.String())
	refund, err := s.payments.CreateRefund(ctx, params)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating refund")
	}

	metadata, _ := json.Marshal(map[string]string{
		"refund_id": refund.ID,
		"amount":    hold.AmountHeld.Round(2).String(),
		"currency":  string(hold.Currency),
	})
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerRepo := s.ledger.WithTx(tx)
		bookingsRepo := s.bookings.WithTx(tx)
		if err := ledgerRepo.UpdateHoldStatus(ctx, hold.ID, enums.HoldStatusFailed); err != nil {
			return err
		}
		if err := bookingsRepo.SetStatus(ctx, bookingID, enums.BookingStatusCancelled); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, actor, enums.AuditActionForceRefund, bookingID, reason, metadata)
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventRefundIssued,
		BookingID: bookingID,
		UserID:    booking.RequesterID,
		Reason:    reason,
		Amount:    hold.AmountHeld.Round(2).String(),
		Currency:  string(hold.Currency),
	})
	s.logg.Info(s.logg.WithBookingID(ctx, bookingID.String()),
		fmt.Sprintf("force refund %s issued by admin", refund.ID))
	return nil
}

// ManualRelease pushes a release through with the dispute guard bypassed.
// Every other guard still applies; the attempt is audited regardless of
// outcome.
func (s *Service) ManualRelease(ctx context.Context, actor Actor, bookingID uuid.UUID, reason string) (*settlement.ReleaseResult, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "release reason required")
	}

	result, releaseErr := s.settlement.Release(ctx, settlement.ReleaseInput{
		BookingID:          bookingID,
		Reason:             enums.ReleaseReasonAdminForced,
		BypassDisputeGuard: true,
	})

	outcome := "released"
	switch {
	case releaseErr != nil:
		outcome = "failed"
		if typed := pkgerrors.As(releaseErr); typed != nil && typed.Code() == pkgerrors.CodePrecondition {
			outcome = "refused"
		}
	case result.AlreadyTransferred:
		outcome = "already_transferred"
	}
	metadata, _ := json.Marshal(map[string]string{"outcome": outcome})
	if err := s.recordAudit(ctx, nil, actor, enums.AuditActionManualRelease, bookingID, reason, metadata); err != nil {
		s.logg.Error(ctx, "recording manual release audit entry", err)
	}

	return result, releaseErr
}

// AuditTrail returns the admin actions recorded against a booking.
func (s *Service) AuditTrail(ctx context.Context, bookingID uuid.UUID, limit int) ([]models.AuditLog, error) {
	return s.audit.ListByTargetID(ctx, bookingID, limit)
}

func (s *Service) recordAudit(ctx context.Context, tx *gorm.DB, actor Actor, action enums.AuditAction, targetID uuid.UUID, reason string, metadata json.RawMessage) error {
	return s.audit.WithTx(tx).Create(ctx, &models.AuditLog{
		ActorID:   actor.UserID,
		Action:    action,
		TargetID:  targetID,
		Reason:    reason,
		IP:        actor.IP,
		UserAgent: actor.UserAgent,
		Metadata:  metadata,
	})
}

func isNotFound(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeNotFound
}
