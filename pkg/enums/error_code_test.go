package enums

import "testing"

func TestErrorCodeNamesAreStable(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrorCodeGiftCardNotFound:              "GIFT_CARD_NOT_FOUND",
		ErrorCodeGiftCardInsufficientBalance:   "GIFT_CARD_INSUFFICIENT_BALANCE",
		ErrorCodeDiscountCodeUsageLimitReached: "DISCOUNT_CODE_USAGE_LIMIT_REACHED",
		ErrorCodeTransactionAlreadyConfirmed:   "TRANSACTION_ALREADY_CONFIRMED",
		ErrorCodeSystemError:                   "SYSTEM_ERROR",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Fatalf("code %d: got %q, want %q", int(code), got, want)
		}
	}
}

func TestErrorCodeUnknown(t *testing.T) {
	if ErrorCode(9999).IsValid() {
		t.Fatal("9999 should not be a published code")
	}
	if got := ErrorCode(9999).String(); got != "UNKNOWN_9999" {
		t.Fatalf("unexpected name for unknown code: %q", got)
	}
}

func TestTransactionTypeClassification(t *testing.T) {
	if !TransactionTypeDebit.IsOriginating() || !TransactionTypeRedeem.IsOriginating() {
		t.Fatal("debit and redeem are originating types")
	}
	for _, typ := range SettlementTypesByPriority {
		if !typ.IsSettlement() {
			t.Fatalf("%s should be a settlement type", typ)
		}
		if typ.IsOriginating() {
			t.Fatalf("%s should not be originating", typ)
		}
	}
	if len(SettlementTypesByPriority) != 3 || SettlementTypesByPriority[0] != TransactionTypeRefund {
		t.Fatalf("refund must outrank other settlements: %v", SettlementTypesByPriority)
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	terminal := []TransactionStatus{TransactionStatusConfirmed, TransactionStatusReversed, TransactionStatusRefunded}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if TransactionStatusPending.IsTerminal() || TransactionStatusUnknown.IsTerminal() {
		t.Fatal("pending and unknown are not terminal")
	}
}
