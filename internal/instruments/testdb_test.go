package instruments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db/models"
)

func setupInstrumentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	giftCards := `
CREATE TABLE IF NOT EXISTS gift_cards (
  id TEXT PRIMARY KEY,
  serial_number TEXT NOT NULL UNIQUE,
  company_id TEXT NOT NULL,
  customer_id TEXT,
  batch_id TEXT,
  initial_amount NUMERIC NOT NULL,
  balance NUMERIC NOT NULL,
  usage_limit INTEGER NOT NULL DEFAULT 0,
  current_usage_count INTEGER NOT NULL DEFAULT 0,
  used INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  blocked INTEGER NOT NULL DEFAULT 0,
  blocked_by TEXT,
  blocked_date DATETIME,
  issue_date DATETIME NOT NULL,
  expiry_date DATETIME,
  last_used_at DATETIME,
  store_limited INTEGER NOT NULL DEFAULT 0,
  allowed_store_ids TEXT,
  item_category_limited INTEGER NOT NULL DEFAULT 0,
  allowed_item_category_ids TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	discountCodes := `
CREATE TABLE IF NOT EXISTS discount_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  company_id TEXT NOT NULL,
  customer_id TEXT,
  batch_id TEXT,
  discount_type TEXT NOT NULL,
  percentage NUMERIC,
  constant_discount_amount NUMERIC,
  max_discount_amount NUMERIC,
  minimum_bill_amount NUMERIC,
  usage_limit INTEGER NOT NULL DEFAULT 1,
  current_usage_count INTEGER NOT NULL DEFAULT 0,
  used INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  blocked INTEGER NOT NULL DEFAULT 0,
  blocked_by TEXT,
  blocked_date DATETIME,
  issue_date DATETIME NOT NULL,
  expiry_date DATETIME,
  last_used_at DATETIME,
  store_limited INTEGER NOT NULL DEFAULT 0,
  allowed_store_ids TEXT,
  item_category_limited INTEGER NOT NULL DEFAULT 0,
  allowed_item_category_ids TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(giftCards).Error)
	require.NoError(t, db.Exec(discountCodes).Error)
	return db
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func newCard(t *testing.T, db *gorm.DB, serial string, balance int64) *models.GiftCard {
	t.Helper()

	card := &models.GiftCard{
		ID:            uuid.New(),
		SerialNumber:  serial,
		CompanyID:     uuid.New(),
		InitialAmount: decimal.NewFromInt(balance),
		Balance:       decimal.NewFromInt(balance),
		IsActive:      true,
		IssueDate:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(card).Error)
	return card
}

func newCode(t *testing.T, db *gorm.DB, value string, usageLimit int) *models.DiscountCode {
	t.Helper()

	code := &models.DiscountCode{
		ID:           uuid.New(),
		Code:         value,
		CompanyID:    uuid.New(),
		DiscountType: "percentage",
		Percentage:   decimal.NewFromInt(10),
		UsageLimit:   usageLimit,
		IsActive:     true,
		IssueDate:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(code).Error)
	return code
}
