package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/mason-hale/giftledger-backend/pkg/db/types"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// DiscountCode holds usage state and discount terms for one issued code.
// The `used` column is derived bookkeeping of the usage counter reaching the
// limit; it is never mutated independently.
type DiscountCode struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code       string     `gorm:"column:code;not null;uniqueIndex:uq_discount_codes_code"`
	CompanyID  uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid"`
	BatchID    *uuid.UUID `gorm:"column:batch_id;type:uuid;index"`

	DiscountType           enums.DiscountType `gorm:"column:discount_type;type:discount_type_enum;not null"`
	Percentage             decimal.Decimal    `gorm:"column:percentage;type:numeric(5,2)"`
	ConstantDiscountAmount decimal.Decimal    `gorm:"column:constant_discount_amount;type:numeric(12,2)"`
	MaxDiscountAmount      decimal.Decimal    `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	MinimumBillAmount      decimal.Decimal    `gorm:"column:minimum_bill_amount;type:numeric(12,2)"`

	UsageLimit        int  `gorm:"column:usage_limit;not null;default:1"`
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

// UsageExhausted reports whether the code has no redemptions left.
func (d *DiscountCode) UsageExhausted() bool {
	return d.UsageLimit > 0 && d.CurrentUsageCount >= d.UsageLimit
}

// Expired reports whether the code is past its expiry at the given instant.
func (d *DiscountCode) Expired(now time.Time) bool {
	return d.ExpiryDate != nil && now.After(*d.ExpiryDate)
}

// UsabilityCode evaluates the usability predicate fresh and returns the first
// failing condition, or ErrorCodeNone when the code is usable.
func (d *DiscountCode) UsabilityCode(now time.Time) enums.ErrorCode {
	switch {
	case d.Blocked:
		return enums.ErrorCodeDiscountCodeNotUsable
	case !d.IsActive:
		return enums.ErrorCodeDiscountCodeNotUsable
	case d.UsageExhausted():
		return enums.ErrorCodeDiscountCodeUsageLimitReached
	case d.Expired(now):
		return enums.ErrorCodeDiscountCodeNotUsable
	default:
		return enums.ErrorCodeNone
	}
}

// IsUsable reports whether the code can be redeemed right now.
func (d *DiscountCode) IsUsable(now time.Time) bool {
	return d.UsabilityCode(now) == enums.ErrorCodeNone
}

// AllowsStore applies the optional store scope restriction.
func (d *DiscountCode) AllowsStore(storeID *uuid.UUID) bool {
	if !d.StoreLimited {
		return true
	}
	return storeID != nil && d.AllowedStoreIDs.Contains(*storeID)
}

// AllowsItemCategory applies the optional item category scope restriction.
func (d *DiscountCode) AllowsItemCategory(categoryID *uuid.UUID) bool {
	if !d.ItemCategoryLimited {
		return true
	}
	return categoryID != nil && d.AllowedItemCategoryIDs.Contains(*categoryID)
}

// DiscountFor computes the discount granted against a bill amount. The
// minimum bill gate is checked by the caller before reserving usage.
func (d *DiscountCode) DiscountFor(billAmount decimal.Decimal) decimal.Decimal {
	if d.DiscountType == enums.DiscountTypeFixed {
		return d.ConstantDiscountAmount
	}
	discount := billAmount.Mul(d.Percentage).Div(decimal.NewFromInt(100)).Round(2)
	if d.MaxDiscountAmount.IsPositive() && discount.GreaterThan(d.MaxDiscountAmount) {
		return d.MaxDiscountAmount
	}
	return discount
}
