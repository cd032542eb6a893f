package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
)

type giftCardLedger struct {
	db *gorm.DB
}

// NewGiftCardLedger returns the ledger repository backed by the gift card
// transaction table.
func NewGiftCardLedger(db *gorm.DB) Repository {
	return &giftCardLedger{db: db}
}

func (r *giftCardLedger) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &giftCardLedger{db: tx}
}

func (r *giftCardLedger) Kind() enums.InstrumentKind {
	return enums.InstrumentKindGiftCard
}

func giftCardRow(entry *Entry) *models.GiftCardTransaction {
	return &models.GiftCardTransaction{
		ID:                  entry.ID,
		TransactionID:       entry.TransactionID,
		ClientTransactionID: entry.ClientTransactionID,
		Type:                entry.Type,
		Status:              entry.Status,
		GiftCardID:          entry.InstrumentID,
		APIUserID:           entry.APIUserID,
		CustomerID:          entry.CustomerID,
		StoreID:             entry.StoreID,
		OriginalAmount:      entry.OriginalAmount,
		Amount:              entry.Amount,
		BalanceBefore:       entry.BalanceBefore,
		OriginTransactionID: entry.OriginTransactionID,
	}
}

func giftCardEntry(row *models.GiftCardTransaction) Entry {
	return Entry{
		ID:                  row.ID,
		TransactionID:       row.TransactionID,
		ClientTransactionID: row.ClientTransactionID,
		Type:                row.Type,
		Status:              row.Status,
		InstrumentID:        row.GiftCardID,
		APIUserID:           row.APIUserID,
		CustomerID:          row.CustomerID,
		StoreID:             row.StoreID,
		OriginalAmount:      row.OriginalAmount,
		Amount:              row.Amount,
		BalanceBefore:       row.BalanceBefore,
		OriginTransactionID: row.OriginTransactionID,
		CreatedAt:           row.CreatedAt,
	}
}

func (r *giftCardLedger) Create(ctx context.Context, entry *Entry) error {
	row := giftCardRow(entry)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	entry.CreatedAt = row.CreatedAt
	return nil
}

func (r *giftCardLedger) FindByTransactionID(ctx context.Context, transactionID uuid.UUID, entryType enums.TransactionType) (*Entry, error) {
	var row models.GiftCardTransaction
	if err := r.db.WithContext(ctx).
		First(&row, "transaction_id = ? AND type = ?", transactionID, entryType).Error; err != nil {
		return nil, err
	}
	entry := giftCardEntry(&row)
	return &entry, nil
}

func (r *giftCardLedger) FindByClientTransactionID(ctx context.Context, clientTransactionID string, entryType enums.TransactionType, apiUserID uuid.UUID) (*Entry, error) {
	var row models.GiftCardTransaction
	if err := r.db.WithContext(ctx).
		First(&row, "client_transaction_id = ? AND type = ? AND api_user_id = ?", clientTransactionID, entryType, apiUserID).Error; err != nil {
		return nil, err
	}
	entry := giftCardEntry(&row)
	return &entry, nil
}

// MarkStatus flips a pending entry to a terminal status. The pending guard is
// part of the statement; a false return means another writer settled first.
func (r *giftCardLedger) MarkStatus(ctx context.Context, id uuid.UUID, to enums.TransactionStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GiftCardTransaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPending).
		UpdateColumns(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *giftCardLedger) FindSettlementsByOrigin(ctx context.Context, originTransactionID uuid.UUID) ([]Entry, error) {
	var rows []models.GiftCardTransaction
	if err := r.db.WithContext(ctx).
		Where("origin_transaction_id = ?", originTransactionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return giftCardEntries(rows), nil
}

func (r *giftCardLedger) pendingWithSettlementQuery(ctx context.Context, settlementType enums.TransactionType) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.GiftCardTransaction{}).
		Where("type = ? AND status = ?", enums.TransactionTypeDebit, enums.TransactionStatusPending).
		Where("EXISTS (SELECT 1 FROM gift_card_transactions s WHERE s.origin_transaction_id = gift_card_transactions.transaction_id AND s.type = ?)", settlementType)
}

func (r *giftCardLedger) FindPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType, limit int) ([]Entry, error) {
	var rows []models.GiftCardTransaction
	query := r.pendingWithSettlementQuery(ctx, settlementType).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return giftCardEntries(rows), nil
}

func (r *giftCardLedger) CountPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType) (int64, error) {
	var count int64
	if err := r.pendingWithSettlementQuery(ctx, settlementType).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *giftCardLedger) orphanedSettlementsQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.GiftCardTransaction{}).
		Where("type IN ?", []enums.TransactionType{
			enums.TransactionTypeConfirmation,
			enums.TransactionTypeReversal,
			enums.TransactionTypeRefund,
		}).
		Where("origin_transaction_id IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM gift_card_transactions o WHERE o.transaction_id = gift_card_transactions.origin_transaction_id AND o.type = ?)", enums.TransactionTypeDebit)
}

func (r *giftCardLedger) FindOrphanedSettlements(ctx context.Context, limit int) ([]Entry, error) {
	var rows []models.GiftCardTransaction
	query := r.orphanedSettlementsQuery(ctx).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return giftCardEntries(rows), nil
}

func (r *giftCardLedger) CountOrphanedSettlements(ctx context.Context) (int64, error) {
	var count int64
	if err := r.orphanedSettlementsQuery(ctx).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *giftCardLedger) ListByInstrument(ctx context.Context, instrumentID uuid.UUID, params pagination.Params) ([]Entry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.GiftCardTransaction{}).
		Where("gift_card_id = ?", instrumentID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.GiftCardTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	entries := giftCardEntries(rows)
	if len(entries) > normalized {
		next := entries[normalized]
		entries = entries[:normalized]
		return entries, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return entries, nil, nil
}

func giftCardEntries(rows []models.GiftCardTransaction) []Entry {
	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, giftCardEntry(&rows[i]))
	}
	return entries
}
