package apiusers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db/models"
)

// Repository persists merchant API identities.
type Repository interface {
	Create(ctx context.Context, user *models.APIUser) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.APIUser, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *models.APIUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.APIUser, error) {
	var user models.APIUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.APIUser{}).
		Where("id = ? AND is_active = ?", id, !active).
		UpdateColumn("is_active", active)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
