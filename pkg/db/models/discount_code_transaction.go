package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// DiscountCodeTransaction is one immutable ledger entry against a discount
// code. Mirrors GiftCardTransaction with redeem as the originating type.
type DiscountCodeTransaction struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`

	TransactionID       uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:uq_discount_code_transactions_transaction_id_type"`
	ClientTransactionID string    `gorm:"column:client_transaction_id;not null;uniqueIndex:uq_discount_code_transactions_client_transaction"`

	Type   enums.TransactionType   `gorm:"column:type;type:transaction_type_enum;not null;uniqueIndex:uq_discount_code_transactions_transaction_id_type;uniqueIndex:uq_discount_code_transactions_client_transaction"`
	Status enums.TransactionStatus `gorm:"column:status;type:transaction_status_enum;not null;default:'pending';index:idx_discount_code_transactions_status"`

	DiscountCodeID uuid.UUID  `gorm:"column:discount_code_id;type:uuid;not null;index"`
	APIUserID      uuid.UUID  `gorm:"column:api_user_id;type:uuid;not null;uniqueIndex:uq_discount_code_transactions_client_transaction"`
	CustomerID     *uuid.UUID `gorm:"column:customer_id;type:uuid"`
	StoreID        *uuid.UUID `gorm:"column:store_id;type:uuid"`

	// OriginalAmount is the bill total the discount was computed against;
	// Amount is the granted discount.
	OriginalAmount decimal.Decimal `gorm:"column:original_amount;type:numeric(12,2);not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`

	OriginTransactionID *uuid.UUID `gorm:"column:origin_transaction_id;type:uuid;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_discount_code_transactions_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
