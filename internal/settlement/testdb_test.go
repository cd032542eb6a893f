package settlement

import (
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/pkg/db"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS gift_card_transactions (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL,
  client_transaction_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  gift_card_id TEXT NOT NULL,
  api_user_id TEXT NOT NULL,
  customer_id TEXT,
  store_id TEXT,
  original_amount NUMERIC NOT NULL,
  amount NUMERIC NOT NULL,
  balance_before NUMERIC NOT NULL,
  origin_transaction_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (transaction_id, type),
  UNIQUE (client_transaction_id, type, api_user_id)
);`, `
CREATE TABLE IF NOT EXISTS discount_code_transactions (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL,
  client_transaction_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  discount_code_id TEXT NOT NULL,
  api_user_id TEXT NOT NULL,
  customer_id TEXT,
  store_id TEXT,
  original_amount NUMERIC NOT NULL,
  amount NUMERIC NOT NULL,
  origin_transaction_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (transaction_id, type),
  UNIQUE (client_transaction_id, type, api_user_id)
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type settlementFixture struct {
	conn       *gorm.DB
	client     *db.Client
	giftCards  instruments.GiftCardRepository
	codes      instruments.DiscountCodeRepository
	giftLedger ledger.Repository
	codeLedger ledger.Repository
	svc        Service
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()

	conn := setupSettlementTestDB(t)
	f := &settlementFixture{
		conn:       conn,
		client:     db.NewWithConn(conn),
		giftCards:  instruments.NewGiftCardRepository(conn),
		codes:      instruments.NewDiscountCodeRepository(conn),
		giftLedger: ledger.NewGiftCardLedger(conn),
		codeLedger: ledger.NewDiscountCodeLedger(conn),
	}
	logg := logger.New(logger.Options{ServiceName: "settlement-test", Output: io.Discard})
	svc, err := NewService(f.client, f.giftCards, f.codes, f.giftLedger, f.codeLedger, logg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *settlementFixture) newCard(t *testing.T, serial string, balance int64) *models.GiftCard {
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
	require.NoError(t, f.conn.Create(card).Error)
	return card
}

func (f *settlementFixture) newPercentageCode(t *testing.T, value string, percent int64, usageLimit int) *models.DiscountCode {
	t.Helper()

	code := &models.DiscountCode{
		ID:           uuid.New(),
		Code:         value,
		CompanyID:    uuid.New(),
		DiscountType: enums.DiscountTypePercentage,
		Percentage:   decimal.NewFromInt(percent),
		UsageLimit:   usageLimit,
		IsActive:     true,
		IssueDate:    time.Now().UTC(),
	}
	require.NoError(t, f.conn.Create(code).Error)
	return code
}

func (f *settlementFixture) ledgerCount(t *testing.T, table string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.conn.Table(table).Count(&count).Error)
	return count
}
