package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// Repository reads payout accounts. The settlement engine never writes them;
// onboarding and verification belong to the identity subsystem.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout account repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.PayoutAccount, error) {
	var account models.PayoutAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
		}
		return nil, err
	}
	return &account, nil
}
