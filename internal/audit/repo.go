package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AmielDylan/sendbox-sub002/pkg/db/models"
)

// Repository appends and queries the admin action trail. Rows are never
// updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByTargetID(ctx context.Context, targetID uuid.UUID, limit int) ([]models.AuditLog, error)
	ListByActorID(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByTargetID(ctx context.Context, targetID uuid.UUID, limit int) ([]models.AuditLog, error) {
	return r.list(ctx, "target_id = ?", targetID, limit)
}

func (r *repository) ListByActorID(ctx context.Context, actorID uuid.UUID, limit int) ([]models.AuditLog, error) {
	return r.list(ctx, "actor_id = ?", actorID, limit)
}

func (r *repository) list(ctx context.Context, where string, id uuid.UUID, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	query := r.db.WithContext(ctx).
		Where(where, id).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
