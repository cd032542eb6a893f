package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// GiftCardTransaction is one immutable ledger entry against a gift card.
// Only Status is ever updated after creation, exactly once, when the entry
// reaches a terminal settlement state.
type GiftCardTransaction struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`

	// TransactionID is the server-assigned identifier, unique per entry type.
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:uq_gift_card_transactions_transaction_id_type"`
	// ClientTransactionID is the caller-supplied idempotency key, unique per
	// (type, acting API user).
	ClientTransactionID string `gorm:"column:client_transaction_id;not null;uniqueIndex:uq_gift_card_transactions_client_transaction"`

	Type   enums.TransactionType   `gorm:"column:type;type:transaction_type_enum;not null;uniqueIndex:uq_gift_card_transactions_transaction_id_type;uniqueIndex:uq_gift_card_transactions_client_transaction"`
	Status enums.TransactionStatus `gorm:"column:status;type:transaction_status_enum;not null;default:'pending';index:idx_gift_card_transactions_status"`

	GiftCardID uuid.UUID  `gorm:"column:gift_card_id;type:uuid;not null;index"`
	APIUserID  uuid.UUID  `gorm:"column:api_user_id;type:uuid;not null;uniqueIndex:uq_gift_card_transactions_client_transaction"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid"`
	StoreID    *uuid.UUID `gorm:"column:store_id;type:uuid"`

	OriginalAmount decimal.Decimal `gorm:"column:original_amount;type:numeric(12,2);not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	// BalanceBefore is the pre-reservation balance snapshot captured at debit
	// time. Never recomputed.
	BalanceBefore decimal.Decimal `gorm:"column:balance_before;type:numeric(12,2);not null"`

	// OriginTransactionID links a settlement entry to the TransactionID of
	// the debit it settles. Set once at creation, nil on originating entries.
	OriginTransactionID *uuid.UUID `gorm:"column:origin_transaction_id;type:uuid;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_gift_card_transactions_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
