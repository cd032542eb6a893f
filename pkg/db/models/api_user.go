package models

import (
	"time"

	"github.com/google/uuid"
)

// APIUser is the acting merchant integration identity. The core uses it only
// for idempotency scoping and audit attribution, never for authorization
// decisions.
type APIUser struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	// KeyHash is the Argon2id hash of the API key secret.
	KeyHash  string `gorm:"column:key_hash;not null"`
	IsActive bool   `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
