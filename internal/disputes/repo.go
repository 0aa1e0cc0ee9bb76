package disputes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// Repository manages persistence for disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindOpenByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time) error
	ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Dispute, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dispute repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) FindOpenByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, enums.DisputeStatusOpen).
		First(&dispute).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open dispute")
		}
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Resolve(ctx context.Context, id uuid.UUID, resolvedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status = ?", id, enums.DisputeStatusOpen).
		Updates(map[string]any{
			"status":      enums.DisputeStatusResolved,
			"resolved_at": resolvedAt,
		}).Error
}

func (r *repository) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Dispute, error) {
	var results []models.Dispute
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
