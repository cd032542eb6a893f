package enums

import "fmt"

// InstrumentKind distinguishes the two stored-value instrument families.
type InstrumentKind string

const (
	InstrumentKindGiftCard     InstrumentKind = "gift_card"
	InstrumentKindDiscountCode InstrumentKind = "discount_code"
)

var validInstrumentKinds = []InstrumentKind{
	InstrumentKindGiftCard,
	InstrumentKindDiscountCode,
}

// String implements fmt.Stringer.
func (k InstrumentKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k InstrumentKind) IsValid() bool {
	for _, candidate := range validInstrumentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// OriginatingType returns the ledger entry type that opens a settlement
// window for the instrument kind.
func (k InstrumentKind) OriginatingType() TransactionType {
	if k == InstrumentKindDiscountCode {
		return TransactionTypeRedeem
	}
	return TransactionTypeDebit
}

// ParseInstrumentKind converts raw input into an InstrumentKind.
func ParseInstrumentKind(value string) (InstrumentKind, error) {
	for _, candidate := range validInstrumentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid instrument kind %q", value)
}
