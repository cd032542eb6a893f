package enums

import "fmt"

// TransactionType maps to the transaction_type_enum enum in Postgres.
type TransactionType string

const (
	TransactionTypeDebit        TransactionType = "debit"
	TransactionTypeRedeem       TransactionType = "redeem"
	TransactionTypeConfirmation TransactionType = "confirmation"
	TransactionTypeReversal     TransactionType = "reversal"
	TransactionTypeRefund       TransactionType = "refund"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeDebit,
	TransactionTypeRedeem,
	TransactionTypeConfirmation,
	TransactionTypeReversal,
	TransactionTypeRefund,
}

// SettlementTypesByPriority lists settlement entry types in repair priority
// order: a refund outranks a reversal, which outranks a confirmation.
var SettlementTypesByPriority = []TransactionType{
	TransactionTypeRefund,
	TransactionTypeReversal,
	TransactionTypeConfirmation,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsOriginating reports whether the type opens a settlement window.
func (t TransactionType) IsOriginating() bool {
	return t == TransactionTypeDebit || t == TransactionTypeRedeem
}

// IsSettlement reports whether the type finalizes a prior debit or redeem.
func (t TransactionType) IsSettlement() bool {
	return t == TransactionTypeConfirmation || t == TransactionTypeReversal || t == TransactionTypeRefund
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
