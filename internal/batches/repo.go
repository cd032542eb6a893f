package batches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
)

// Repository persists bulk issuance batches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]*models.Batch, error)
	MarkStatus(ctx context.Context, id uuid.UUID, from, to enums.BatchStatus, now time.Time) (bool, error)
	Finish(ctx context.Context, id uuid.UUID, processed, failed int, status enums.BatchStatus, now time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, batch *models.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]*models.Batch, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []*models.Batch
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkStatus transitions a batch only when it is still in the expected state.
func (r *repository) MarkStatus(ctx context.Context, id uuid.UUID, from, to enums.BatchStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Finish(ctx context.Context, id uuid.UUID, processed, failed int, status enums.BatchStatus, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"processed_count": processed,
			"failed_count":    failed,
			"status":          status,
			"updated_at":      now,
		}).Error
}
