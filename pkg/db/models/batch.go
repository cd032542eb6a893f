package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// Batch groups instruments issued by one bulk request.
type Batch struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID            `gorm:"column:company_id;type:uuid;not null;index"`
	Kind      enums.InstrumentKind `gorm:"column:kind;type:instrument_kind_enum;not null"`

	TotalCount     int `gorm:"column:total_count;not null"`
	ProcessedCount int `gorm:"column:processed_count;not null;default:0"`
	FailedCount    int `gorm:"column:failed_count;not null;default:0"`

	Status enums.BatchStatus `gorm:"column:status;type:batch_status_enum;not null;default:'pending'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
