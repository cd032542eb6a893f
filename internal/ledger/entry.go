package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// Entry is the instrument-neutral view of one ledger row. Both transaction
// tables project into it so settlement and reconciliation share one code path.
type Entry struct {
	ID                  uuid.UUID
	TransactionID       uuid.UUID
	ClientTransactionID string
	Type                enums.TransactionType
	Status              enums.TransactionStatus
	InstrumentID        uuid.UUID
	APIUserID           uuid.UUID
	CustomerID          *uuid.UUID
	StoreID             *uuid.UUID
	OriginalAmount      decimal.Decimal
	Amount              decimal.Decimal
	BalanceBefore       decimal.Decimal
	OriginTransactionID *uuid.UUID
	CreatedAt           time.Time
}

// SamePayload reports whether another entry carries an identical business
// payload. Used to distinguish idempotent replays from key collisions.
func (e *Entry) SamePayload(other *Entry) bool {
	if e.InstrumentID != other.InstrumentID {
		return false
	}
	if !e.OriginalAmount.Equal(other.OriginalAmount) {
		return false
	}
	if (e.StoreID == nil) != (other.StoreID == nil) {
		return false
	}
	if e.StoreID != nil && *e.StoreID != *other.StoreID {
		return false
	}
	if (e.OriginTransactionID == nil) != (other.OriginTransactionID == nil) {
		return false
	}
	if e.OriginTransactionID != nil && *e.OriginTransactionID != *other.OriginTransactionID {
		return false
	}
	return true
}
