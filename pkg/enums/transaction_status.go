package enums

import "fmt"

// TransactionStatus maps to the transaction_status_enum enum in Postgres.
// Status is authoritative on originating (debit/redeem) entries; settlement
// entries mirror the terminal value once applied.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusReversed  TransactionStatus = "reversed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusUnknown   TransactionStatus = "unknown"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusConfirmed,
	TransactionStatusReversed,
	TransactionStatusRefunded,
	TransactionStatusUnknown,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further settlement may follow.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusReversed || s == TransactionStatusRefunded
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
