package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/mason-hale/giftledger-backend/pkg/db/types"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// GiftCard holds the authoritative balance and usage state for one issued
// card. Balance is mutated only through ledger transitions.
type GiftCard struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SerialNumber string     `gorm:"column:serial_number;not null;uniqueIndex:uq_gift_cards_serial_number"`
	CompanyID    uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index"`
	CustomerID   *uuid.UUID `gorm:"column:customer_id;type:uuid"`
	BatchID      *uuid.UUID `gorm:"column:batch_id;type:uuid;index"`

	InitialAmount decimal.Decimal `gorm:"column:initial_amount;type:numeric(12,2);not null"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null"`

	UsageLimit        int  `gorm:"column:usage_limit;not null;default:0"`
	CurrentUsageCount int  `gorm:"column:current_usage_count;not null;default:0"`
	Used              bool `gorm:"column:used;not null;default:false"`

	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	Blocked     bool       `gorm:"column:blocked;not null;default:false"`
	BlockedBy   *uuid.UUID `gorm:"column:blocked_by;type:uuid"`
	BlockedDate *time.Time `gorm:"column:blocked_date"`

	IssueDate  time.Time  `gorm:"column:issue_date;not null"`
	ExpiryDate *time.Time `gorm:"column:expiry_date"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`

	StoreLimited           bool              `gorm:"column:store_limited;not null;default:false"`
	AllowedStoreIDs        dbtypes.UUIDArray `gorm:"column:allowed_store_ids;type:text"`
	ItemCategoryLimited    bool              `gorm:"column:item_category_limited;not null;default:false"`
	AllowedItemCategoryIDs dbtypes.UUIDArray `gorm:"column:allowed_item_category_ids;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// UsageExhausted reports whether the card has hit its usage limit. A zero
// limit means unlimited uses.
func (g *GiftCard) UsageExhausted() bool {
	return g.UsageLimit > 0 && g.CurrentUsageCount >= g.UsageLimit
}

// Expired reports whether the card is past its expiry at the given instant.
func (g *GiftCard) Expired(now time.Time) bool {
	return g.ExpiryDate != nil && now.After(*g.ExpiryDate)
}

// UsabilityCode evaluates the usability predicate fresh and returns the
// first failing condition, or ErrorCodeNone when the card is usable. The
// result is never cached on the entity.
func (g *GiftCard) UsabilityCode(now time.Time) enums.ErrorCode {
	switch {
	case g.Blocked:
		return enums.ErrorCodeGiftCardNotUsable
	case !g.IsActive:
		return enums.ErrorCodeGiftCardNotUsable
	case g.UsageExhausted():
		return enums.ErrorCodeGiftCardNotUsable
	case g.Expired(now):
		return enums.ErrorCodeGiftCardNotUsable
	default:
		return enums.ErrorCodeNone
	}
}

// IsUsable reports whether the card can participate in a debit right now.
func (g *GiftCard) IsUsable(now time.Time) bool {
	return g.UsabilityCode(now) == enums.ErrorCodeNone
}

// AllowsStore applies the optional store scope restriction.
func (g *GiftCard) AllowsStore(storeID *uuid.UUID) bool {
	if !g.StoreLimited {
		return true
	}
	return storeID != nil && g.AllowedStoreIDs.Contains(*storeID)
}

// AllowsItemCategory applies the optional item category scope restriction.
func (g *GiftCard) AllowsItemCategory(categoryID *uuid.UUID) bool {
	if !g.ItemCategoryLimited {
		return true
	}
	return categoryID != nil && g.AllowedItemCategoryIDs.Contains(*categoryID)
}
