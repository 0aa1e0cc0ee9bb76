package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// Repository manages the two append-heavy ledger tables: payment holds
// (money in escrow) and transfers (money released to travelers).
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateHold(ctx context.Context, hold *models.PaymentHold) error
	UpdateHoldStatus(ctx context.Context, id uuid.UUID, status enums.HoldStatus) error
	FindSucceededHoldByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.PaymentHold, error)
	FindHoldByProviderID(ctx context.Context, providerHoldID string) (*models.PaymentHold, error)
	ListHoldsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentHold, error)
	ListPendingHolds(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentHold, error)

	CreateTransfer(ctx context.Context, transfer *models.Transfer) error
	UpdateTransfer(ctx context.Context, id uuid.UUID, status enums.TransferStatus, providerTransferID string) error
	FindActiveTransferByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Transfer, error)
	ListTransfersByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Transfer, error)
	ListPendingTransfers(ctx context.Context, olderThan time.Time, limit int) ([]models.Transfer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateHold upserts on the provider hold id: a retried capture reuses the
// provider-side intent, so two attempts may race to record the same hold.
// The status is left alone on conflict so a finalized hold is never
// downgraded back to pending.
func (r *repository) CreateHold(ctx context.Context, hold *models.PaymentHold) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_hold_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount_held", "platform_fee", "client_secret"}),
		}).
		Create(hold).Error
}

func (r *repository) UpdateHoldStatus(ctx context.Context, id uuid.UUID, status enums.HoldStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentHold{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) FindSucceededHoldByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.PaymentHold, error) {
	var hold models.PaymentHold
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, enums.HoldStatusSucceeded).
		First(&hold).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment hold not found")
		}
		return nil, err
	}
	return &hold, nil
}

func (r *repository) FindHoldByProviderID(ctx context.Context, providerHoldID string) (*models.PaymentHold, error) {
	var hold models.PaymentHold
	err := r.db.WithContext(ctx).
		Where("provider_hold_id = ?", providerHoldID).
		First(&hold).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment hold not found")
		}
		return nil, err
	}
	return &hold, nil
}

func (r *repository) ListHoldsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentHold, error) {
	var holds []models.PaymentHold
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}

// ListPendingHolds returns holds stuck in pending past the cutoff, for
// reconciliation against the provider's view.
func (r *repository) ListPendingHolds(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentHold, error) {
	var holds []models.PaymentHold
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.HoldStatusPending, olderThan).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&holds).Error; err != nil {
		return nil, err
	}
	return holds, nil
}

// CreateTransfer inserts a pending transfer row. The partial unique index on
// (booking_id) for active statuses makes this the serialization point for
// concurrent releases; callers inspect the error with db.IsUniqueViolation.
func (r *repository) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) UpdateTransfer(ctx context.Context, id uuid.UUID, status enums.TransferStatus, providerTransferID string) error {
	updates := map[string]any{"status": status}
	if providerTransferID != "" {
		updates["provider_transfer_id"] = providerTransferID
	}
	return r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindActiveTransferByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Transfer, error) {
	var transfer models.Transfer
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID, []enums.TransferStatus{
			enums.TransferStatusPending,
			enums.TransferStatusPaid,
		}).
		First(&transfer).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		return nil, err
	}
	return &transfer, nil
}

// ListPendingTransfers returns transfers still awaiting provider settlement
// past the cutoff. Wallet payouts land here until the reconcile job sees
// them through.
func (r *repository) ListPendingTransfers(ctx context.Context, olderThan time.Time, limit int) ([]models.Transfer, error) {
	var transfers []models.Transfer
	query := r.db.WithContext(ctx).
		Where("status = ? AND attempted_at < ?", enums.TransferStatusPending, olderThan).
		Order("attempted_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

func (r *repository) ListTransfersByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Transfer, error) {
	var transfers []models.Transfer
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}
