package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	giftCardTxns := `
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
);`
	discountCodeTxns := `
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
);`
	require.NoError(t, db.Exec(giftCardTxns).Error)
	require.NoError(t, db.Exec(discountCodeTxns).Error)
	return db
}

type entrySeed struct {
	clientID  string
	entryType enums.TransactionType
	status    enums.TransactionStatus
	origin    *uuid.UUID
}

func seedEntry(t *testing.T, repo Repository, instrumentID, apiUserID uuid.UUID, seed entrySeed) *Entry {
	t.Helper()

	entry := &Entry{
		ID:                  uuid.New(),
		TransactionID:       uuid.New(),
		ClientTransactionID: seed.clientID,
		Type:                seed.entryType,
		Status:              seed.status,
		InstrumentID:        instrumentID,
		APIUserID:           apiUserID,
		OriginalAmount:      decimal.NewFromInt(100),
		Amount:              decimal.NewFromInt(100),
		BalanceBefore:       decimal.NewFromInt(500),
		OriginTransactionID: seed.origin,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	return entry
}

func backdate(t *testing.T, db *gorm.DB, table string, id uuid.UUID, ts time.Time) {
	t.Helper()
	require.NoError(t, db.Table(table).Where("id = ?", id).UpdateColumn("created_at", ts).Error)
}
