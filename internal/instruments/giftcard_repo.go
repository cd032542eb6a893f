package instruments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db/models"
)

// GiftCardRepository manages persistence for gift cards. Balance and usage
// mutations are single conditional UPDATE statements so concurrent requests
// serialize at the row without explicit locks.
type GiftCardRepository interface {
	WithTx(tx *gorm.DB) GiftCardRepository
	Create(ctx context.Context, card *models.GiftCard) error
	CreateBatch(ctx context.Context, cards []*models.GiftCard) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GiftCard, error)
	FindBySerial(ctx context.Context, serial string) (*models.GiftCard, error)
	ReserveAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error)
	ReleaseAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error)
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool, by *uuid.UUID, now time.Time) (bool, error)
}

type giftCardRepository struct {
	db *gorm.DB
}

// NewGiftCardRepository returns a gift card repository bound to the provided database.
func NewGiftCardRepository(db *gorm.DB) GiftCardRepository {
	return &giftCardRepository{db: db}
}

func (r *giftCardRepository) WithTx(tx *gorm.DB) GiftCardRepository {
	if tx == nil {
		return r
	}
	return &giftCardRepository{db: tx}
}

func (r *giftCardRepository) Create(ctx context.Context, card *models.GiftCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *giftCardRepository) CreateBatch(ctx context.Context, cards []*models.GiftCard) error {
	if len(cards) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(cards, 500).Error
}

func (r *giftCardRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *giftCardRepository) FindBySerial(ctx context.Context, serial string) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := r.db.WithContext(ctx).First(&card, "serial_number = ?", serial).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// ReserveAmount atomically decrements the balance and records one use. The
// balance guard is part of the statement, so a false return means another
// request drained the card first (or the usage limit was hit).
func (r *giftCardRepository) ReserveAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ? AND balance >= ? AND (usage_limit = 0 OR current_usage_count < usage_limit)", id, amount).
		UpdateColumns(map[string]any{
			"balance":             gorm.Expr("balance - ?", amount),
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

// ReleaseAmount restores a previously reserved amount after a reversal or
// refund settles.
func (r *giftCardRepository) ReleaseAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"balance":             gorm.Expr("balance + ?", amount),
			"current_usage_count": gorm.Expr("CASE WHEN current_usage_count > 0 THEN current_usage_count - 1 ELSE 0 END"),
			"used":                gorm.Expr("(usage_limit > 0 AND current_usage_count - 1 >= usage_limit)"),
			"updated_at":          now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftCardRepository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool, by *uuid.UUID, now time.Time) (bool, error) {
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
		Model(&models.GiftCard{}).
		Where("id = ? AND blocked = ?", id, !blocked).
		UpdateColumns(columns)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
