package enums

import "fmt"

// ErrorCode is the stable numeric business code attached to every failed
// ledger operation. Codes are part of the API contract and never renumbered.
type ErrorCode int

const (
	ErrorCodeNone ErrorCode = 0

	// Gift card codes.
	ErrorCodeGiftCardNotFound            ErrorCode = 1001
	ErrorCodeGiftCardNotUsable           ErrorCode = 1002
	ErrorCodeGiftCardInsufficientBalance ErrorCode = 1003
	ErrorCodeGiftCardStoreNotAllowed     ErrorCode = 1004
	ErrorCodeGiftCardCategoryNotAllowed  ErrorCode = 1005

	// Discount code codes.
	ErrorCodeDiscountCodeNotFound          ErrorCode = 2001
	ErrorCodeDiscountCodeNotUsable         ErrorCode = 2002
	ErrorCodeDiscountCodeUsageLimitReached ErrorCode = 2003
	ErrorCodeDiscountCodeMinimumBillNotMet ErrorCode = 2004
	ErrorCodeDiscountCodeStoreNotAllowed   ErrorCode = 2005
	ErrorCodeDiscountCodeCategoryNotAllowed ErrorCode = 2006

	// Shared transaction codes.
	ErrorCodeTransactionNotFound         ErrorCode = 3001
	ErrorCodeDuplicateClientTransaction  ErrorCode = 3002
	ErrorCodeTransactionAlreadyConfirmed ErrorCode = 3003
	ErrorCodeTransactionAlreadyReversed  ErrorCode = 3004
	ErrorCodeTransactionAlreadyRefunded  ErrorCode = 3005

	ErrorCodeSystemError ErrorCode = 5000
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCodeNone:                           "NONE",
	ErrorCodeGiftCardNotFound:               "GIFT_CARD_NOT_FOUND",
	ErrorCodeGiftCardNotUsable:              "GIFT_CARD_NOT_USABLE",
	ErrorCodeGiftCardInsufficientBalance:    "GIFT_CARD_INSUFFICIENT_BALANCE",
	ErrorCodeGiftCardStoreNotAllowed:        "GIFT_CARD_STORE_NOT_ALLOWED",
	ErrorCodeGiftCardCategoryNotAllowed:     "GIFT_CARD_ITEM_CATEGORY_NOT_ALLOWED",
	ErrorCodeDiscountCodeNotFound:           "DISCOUNT_CODE_NOT_FOUND",
	ErrorCodeDiscountCodeNotUsable:          "DISCOUNT_CODE_NOT_USABLE",
	ErrorCodeDiscountCodeUsageLimitReached:  "DISCOUNT_CODE_USAGE_LIMIT_REACHED",
	ErrorCodeDiscountCodeMinimumBillNotMet:  "DISCOUNT_CODE_MINIMUM_BILL_NOT_MET",
	ErrorCodeDiscountCodeStoreNotAllowed:    "DISCOUNT_CODE_STORE_NOT_ALLOWED",
	ErrorCodeDiscountCodeCategoryNotAllowed: "DISCOUNT_CODE_ITEM_CATEGORY_NOT_ALLOWED",
	ErrorCodeTransactionNotFound:            "TRANSACTION_NOT_FOUND",
	ErrorCodeDuplicateClientTransaction:     "DUPLICATE_CLIENT_TRANSACTION",
	ErrorCodeTransactionAlreadyConfirmed:    "TRANSACTION_ALREADY_CONFIRMED",
	ErrorCodeTransactionAlreadyReversed:     "TRANSACTION_ALREADY_REVERSED",
	ErrorCodeTransactionAlreadyRefunded:     "TRANSACTION_ALREADY_REFUNDED",
	ErrorCodeSystemError:                    "SYSTEM_ERROR",
}

// String returns the symbolic name published alongside the numeric code.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_%d", int(c))
}

// IsValid reports whether the value is a published code.
func (c ErrorCode) IsValid() bool {
	_, ok := errorCodeNames[c]
	return ok
}
