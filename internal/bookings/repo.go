package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// CapturedPricing is the snapshot written exactly once when payment is
// captured. The columns it sets are immutable afterwards.
type CapturedPricing struct {
	TransportPrice    decimal.Decimal
	CommissionAmount  decimal.Decimal
	CommissionRate    decimal.Decimal
	InsurancePremium  *decimal.Decimal
	InsuranceCoverage *decimal.Decimal
	PaymentHoldID     string
	PaidAt            time.Time
}

// Repository manages persistence for bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	SetCapturedPricing(ctx context.Context, id uuid.UUID, snapshot CapturedPricing) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.BookingStatus) error
	SetDelivered(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error
	SetDisputed(ctx context.Context, id uuid.UUID, disputed bool, reason *string) error
	SetPayout(ctx context.Context, id uuid.UUID, payoutID string, payoutAt time.Time) error
	ListAutoReleasable(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Booking, error)
	ListByTraveler(ctx context.Context, travelerID uuid.UUID) ([]models.Booking, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Booking, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bookings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, err
	}
	return &booking, nil
}

// SetCapturedPricing writes the pricing snapshot and flips the booking to
// paid. The WHERE clause on paid_at makes the write a no-op if another
// capture already landed, surfacing the race as a conflict.
func (r *repository) SetCapturedPricing(ctx context.Context, id uuid.UUID, snapshot CapturedPricing) error {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND paid_at IS NULL", id).
		Updates(map[string]any{
			"transport_price":    snapshot.TransportPrice,
			"commission_amount":  snapshot.CommissionAmount,
			"commission_rate":    snapshot.CommissionRate,
			"insurance_premium":  snapshot.InsurancePremium,
			"insurance_coverage": snapshot.InsuranceCoverage,
			"payment_hold_id":    snapshot.PaymentHoldID,
			"paid_at":            snapshot.PaidAt,
			"status":             enums.BookingStatusPaid,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "booking already captured")
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.BookingStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) SetDelivered(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":                enums.BookingStatusDelivered,
			"delivered_at":          confirmedAt,
			"delivery_confirmed_at": confirmedAt,
		}).Error
}

func (r *repository) SetDisputed(ctx context.Context, id uuid.UUID, disputed bool, reason *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"disputed":       disputed,
			"dispute_reason": reason,
		}).Error
}

func (r *repository) SetPayout(ctx context.Context, id uuid.UUID, payoutID string, payoutAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payout_id": payoutID,
			"payout_at": payoutAt,
		}).Error
}

func (r *repository) ListByTraveler(ctx context.Context, travelerID uuid.UUID) ([]models.Booking, error) {
	return r.listByColumn(ctx, "traveler_id", travelerID)
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Booking, error) {
	return r.listByColumn(ctx, "requester_id", requesterID)
}

func (r *repository) listByColumn(ctx context.Context, column string, id uuid.UUID) ([]models.Booking, error) {
	var results []models.Booking
	err := r.db.WithContext(ctx).
		Where(column+" = ?", id).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListAutoReleasable returns delivered, undisputed bookings whose delivery
// predates the cutoff and which have no payout yet. The auto-release worker
// pages through this in batches.
func (r *repository) ListAutoReleasable(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Booking, error) {
	var results []models.Booking
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.BookingStatusDelivered).
		Where("disputed = ?", false).
		Where("payout_id IS NULL").
		Where("delivered_at IS NOT NULL AND delivered_at < ?", deliveredBefore).
		Order("delivered_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
