package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
)

// Repository reads the identity fields the settlement engine consumes.
// User onboarding and KYC document handling live in the identity subsystem;
// this side only observes the resulting status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetKYCStatus(ctx context.Context, id uuid.UUID) (enums.KYCStatus, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetKYCStatus(ctx context.Context, id uuid.UUID) (enums.KYCStatus, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.KYCStatus, nil
}
