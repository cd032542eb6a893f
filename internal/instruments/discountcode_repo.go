package instruments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db/models"
)

// DiscountCodeRepository manages persistence for discount codes. Usage
// mutations follow the same conditional UPDATE discipline as gift cards.
type DiscountCodeRepository interface {
	WithTx(tx *gorm.DB) DiscountCodeRepository
	Create(ctx context.Context, code *models.DiscountCode) error
	CreateBatch(ctx context.Context, codes []*models.DiscountCode) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	ReserveUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ReleaseUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool, by *uuid.UUID, now time.Time) (bool, error)
}

type discountCodeRepository struct {
	db *gorm.DB
}

// NewDiscountCodeRepository returns a discount code repository bound to the provided database.
func NewDiscountCodeRepository(db *gorm.DB) DiscountCodeRepository {
	return &discountCodeRepository{db: db}
}

func (r *discountCodeRepository) WithTx(tx *gorm.DB) DiscountCodeRepository {
	if tx == nil {
		return r
	}
	return &discountCodeRepository{db: tx}
}

func (r *discountCodeRepository) Create(ctx context.Context, code *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *discountCodeRepository) CreateBatch(ctx context.Context, codes []*models.DiscountCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(codes, 500).Error
}

func (r *discountCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	var code models.DiscountCode
	if err := r.db.WithContext(ctx).First(&code, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *discountCodeRepository) FindByCode(ctx context.Context, value string) (*models.DiscountCode, error) {
	var code models.DiscountCode
	if err := r.db.WithContext(ctx).First(&code, "code = ?", value).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// ReserveUsage atomically consumes one redemption. A false return means the
// usage limit was reached by a concurrent request.
func (r *discountCodeRepository) ReserveUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ? AND (usage_limit = 0 OR current_usage_count < usage_limit)", id).
		UpdateColumns(map[string]any{
			"current_usage_count": gorm.Expr("current_usage_count + 1"),
			"used":                gorm.Expr("(usage_limit > 0 AND current_usage_count + 1 >= usage_limit)"),
			"last_used_at":        now,
			"updated_at":          now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseUsage returns one redemption after a reversal or refund settles.
func (r *discountCodeRepository) ReleaseUsage(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"current_usage_count": gorm.Expr("CASE WHEN current_usage_count > 0 THEN current_usage_count - 1 ELSE 0 END"),
			"used":                gorm.Expr("(usage_limit > 0 AND current_usage_count - 1 >= usage_limit)"),
			"updated_at":          now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *discountCodeRepository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool, by *uuid.UUID, now time.Time) (bool, error) {
	columns := map[string]any{
		"blocked":    blocked,
		"updated_at": now,
	}
	if blocked {
		columns["blocked_by"] = by
		columns["blocked_date"] = now
	} else {
		columns["blocked_by"] = nil
		columns["blocked_date"] = nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("id = ? AND blocked = ?", id, !blocked).
		UpdateColumns(columns)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
