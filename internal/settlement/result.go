package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

// Result is the structured outcome of every settlement operation. Business
// rule rejections are carried here as numeric codes rather than errors so
// integrators always get the same response shape.
type Result struct {
	Success       bool
	ErrorCode     enums.ErrorCode
	ErrorMessage  string
	TransactionID uuid.UUID
	// Amount is the money the operation moved: the debit amount for gift
	// cards, the granted discount for codes.
	Amount decimal.Decimal
	// Balance is the gift card balance after the operation. Zero for
	// discount codes.
	Balance decimal.Decimal
	// Replayed marks an idempotent duplicate that returned the original
	// outcome without touching state.
	Replayed bool
}

func failure(code enums.ErrorCode, message string) *Result {
	return &Result{ErrorCode: code, ErrorMessage: message}
}

// alreadySettledCode maps a terminal status to its stable rejection code.
func alreadySettledCode(status enums.TransactionStatus) enums.ErrorCode {
	switch status {
	case enums.TransactionStatusConfirmed:
		return enums.ErrorCodeTransactionAlreadyConfirmed
	case enums.TransactionStatusReversed:
		return enums.ErrorCodeTransactionAlreadyReversed
	case enums.TransactionStatusRefunded:
		return enums.ErrorCodeTransactionAlreadyRefunded
	default:
		return enums.ErrorCodeSystemError
	}
}
