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

type discountCodeLedger struct {
	db *gorm.DB
}

// NewDiscountCodeLedger returns the ledger repository backed by the discount
// code transaction table.
func NewDiscountCodeLedger(db *gorm.DB) Repository {
	return &discountCodeLedger{db: db}
}

func (r *discountCodeLedger) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &discountCodeLedger{db: tx}
}

func (r *discountCodeLedger) Kind() enums.InstrumentKind {
	return enums.InstrumentKindDiscountCode
}

func discountCodeRow(entry *Entry) *models.DiscountCodeTransaction {
	return &models.DiscountCodeTransaction{
		ID:                  entry.ID,
		TransactionID:       entry.TransactionID,
		ClientTransactionID: entry.ClientTransactionID,
		Type:                entry.Type,
		Status:              entry.Status,
		DiscountCodeID:      entry.InstrumentID,
		APIUserID:           entry.APIUserID,
		CustomerID:          entry.CustomerID,
		StoreID:             entry.StoreID,
		OriginalAmount:      entry.OriginalAmount,
		Amount:              entry.Amount,
		OriginTransactionID: entry.OriginTransactionID,
	}
}

func discountCodeEntry(row *models.DiscountCodeTransaction) Entry {
	return Entry{
		ID:                  row.ID,
		TransactionID:       row.TransactionID,
		ClientTransactionID: row.ClientTransactionID,
		Type:                row.Type,
		Status:              row.Status,
		InstrumentID:        row.DiscountCodeID,
		APIUserID:           row.APIUserID,
		CustomerID:          row.CustomerID,
		StoreID:             row.StoreID,
		OriginalAmount:      row.OriginalAmount,
		Amount:              row.Amount,
		OriginTransactionID: row.OriginTransactionID,
		CreatedAt:           row.CreatedAt,
	}
}

func (r *discountCodeLedger) Create(ctx context.Context, entry *Entry) error {
	row := discountCodeRow(entry)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	entry.CreatedAt = row.CreatedAt
	return nil
}

func (r *discountCodeLedger) FindByTransactionID(ctx context.Context, transactionID uuid.UUID, entryType enums.TransactionType) (*Entry, error) {
	var row models.DiscountCodeTransaction
	if err := r.db.WithContext(ctx).
		First(&row, "transaction_id = ? AND type = ?", transactionID, entryType).Error; err != nil {
		return nil, err
	}
	entry := discountCodeEntry(&row)
	return &entry, nil
}

func (r *discountCodeLedger) FindByClientTransactionID(ctx context.Context, clientTransactionID string, entryType enums.TransactionType, apiUserID uuid.UUID) (*Entry, error) {
	var row models.DiscountCodeTransaction
	if err := r.db.WithContext(ctx).
		First(&row, "client_transaction_id = ? AND type = ? AND api_user_id = ?", clientTransactionID, entryType, apiUserID).Error; err != nil {
		return nil, err
	}
	entry := discountCodeEntry(&row)
	return &entry, nil
}

func (r *discountCodeLedger) MarkStatus(ctx context.Context, id uuid.UUID, to enums.TransactionStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DiscountCodeTransaction{}).
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

func (r *discountCodeLedger) FindSettlementsByOrigin(ctx context.Context, originTransactionID uuid.UUID) ([]Entry, error) {
	var rows []models.DiscountCodeTransaction
	if err := r.db.WithContext(ctx).
		Where("origin_transaction_id = ?", originTransactionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return discountCodeEntries(rows), nil
}

func (r *discountCodeLedger) pendingWithSettlementQuery(ctx context.Context, settlementType enums.TransactionType) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.DiscountCodeTransaction{}).
		Where("type = ? AND status = ?", enums.TransactionTypeRedeem, enums.TransactionStatusPending).
		Where("EXISTS (SELECT 1 FROM discount_code_transactions s WHERE s.origin_transaction_id = discount_code_transactions.transaction_id AND s.type = ?)", settlementType)
}

func (r *discountCodeLedger) FindPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType, limit int) ([]Entry, error) {
	var rows []models.DiscountCodeTransaction
	query := r.pendingWithSettlementQuery(ctx, settlementType).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return discountCodeEntries(rows), nil
}

func (r *discountCodeLedger) CountPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType) (int64, error) {
	var count int64
	if err := r.pendingWithSettlementQuery(ctx, settlementType).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *discountCodeLedger) orphanedSettlementsQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.DiscountCodeTransaction{}).
		Where("type IN ?", []enums.TransactionType{
			enums.TransactionTypeConfirmation,
			enums.TransactionTypeReversal,
			enums.TransactionTypeRefund,
		}).
		Where("origin_transaction_id IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM discount_code_transactions o WHERE o.transaction_id = discount_code_transactions.origin_transaction_id AND o.type = ?)", enums.TransactionTypeRedeem)
}

func (r *discountCodeLedger) FindOrphanedSettlements(ctx context.Context, limit int) ([]Entry, error) {
	var rows []models.DiscountCodeTransaction
	query := r.orphanedSettlementsQuery(ctx).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return discountCodeEntries(rows), nil
}

func (r *discountCodeLedger) CountOrphanedSettlements(ctx context.Context) (int64, error) {
	var count int64
	if err := r.orphanedSettlementsQuery(ctx).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *discountCodeLedger) ListByInstrument(ctx context.Context, instrumentID uuid.UUID, params pagination.Params) ([]Entry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.DiscountCodeTransaction{}).
		Where("discount_code_id = ?", instrumentID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.DiscountCodeTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	entries := discountCodeEntries(rows)
	if len(entries) > normalized {
		next := entries[normalized]
		entries = entries[:normalized]
		return entries, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return entries, nil, nil
}

func discountCodeEntries(rows []models.DiscountCodeTransaction) []Entry {
	entries := make([]Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, discountCodeEntry(&rows[i]))
	}
	return entries
}
