package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
)

// Repository manages persistence for one instrument kind's ledger. Entries
// are append-only; the only permitted update is the one-shot pending to
// terminal status flip, guarded inside the statement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Kind() enums.InstrumentKind
	Create(ctx context.Context, entry *Entry) error
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID, entryType enums.TransactionType) (*Entry, error)
	FindByClientTransactionID(ctx context.Context, clientTransactionID string, entryType enums.TransactionType, apiUserID uuid.UUID) (*Entry, error)
	MarkStatus(ctx context.Context, id uuid.UUID, to enums.TransactionStatus, now time.Time) (bool, error)
	FindSettlementsByOrigin(ctx context.Context, originTransactionID uuid.UUID) ([]Entry, error)
	FindPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType, limit int) ([]Entry, error)
	CountPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType) (int64, error)
	FindOrphanedSettlements(ctx context.Context, limit int) ([]Entry, error)
	CountOrphanedSettlements(ctx context.Context) (int64, error)
	ListByInstrument(ctx context.Context, instrumentID uuid.UUID, params pagination.Params) ([]Entry, *pagination.Cursor, error)
}
