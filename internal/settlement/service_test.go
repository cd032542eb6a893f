package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mason-hale/giftledger-backend/pkg/enums"
)

func TestDebitGiftCardOpensPendingWindow(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	card := f.newCard(t, "GC-DEBIT-1", 5000)

	result, err := f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "gc-debit-1",
		Amount:              decimal.NewFromInt(2000),
		ClientTransactionID: "pos-txn-1",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotEqual(t, uuid.Nil, result.TransactionID)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, result.Balance.Equal(decimal.NewFromInt(3000)))

	entry, err := f.giftLedger.FindByTransactionID(ctx, result.TransactionID, enums.TransactionTypeDebit)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPending, entry.Status)
	assert.True(t, entry.BalanceBefore.Equal(decimal.NewFromInt(5000)))

	reloaded, err := f.giftCards.FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, 1, reloaded.CurrentUsageCount)
}

func TestDebitGiftCardRejectionsLeaveNoLedgerEntry(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	blocked := f.newCard(t, "GC-BLOCKED", 5000)
	require.NoError(t, f.conn.Model(blocked).UpdateColumn("blocked", true).Error)

	cases := []struct {
		name  string
		input DebitGiftCardInput
		code  enums.ErrorCode
	}{
		{
			name: "unknown serial",
			input: DebitGiftCardInput{
				SerialNumber:        "GC-MISSING",
				Amount:              decimal.NewFromInt(100),
				ClientTransactionID: "txn-missing",
				APIUserID:           uuid.New(),
			},
			code: enums.ErrorCodeGiftCardNotFound,
		},
		{
			name: "blocked card",
			input: DebitGiftCardInput{
				SerialNumber:        "GC-BLOCKED",
				Amount:              decimal.NewFromInt(100),
				ClientTransactionID: "txn-blocked",
				APIUserID:           uuid.New(),
			},
			code: enums.ErrorCodeGiftCardNotUsable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := f.svc.DebitGiftCard(ctx, tc.input)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tc.code, result.ErrorCode)
		})
	}

	assert.EqualValues(t, 0, f.ledgerCount(t, "gift_card_transactions"),
		"rejected operations must not write ledger entries")
}

func TestDebitGiftCardInsufficientBalance(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.newCard(t, "GC-SMALL", 100)

	result, err := f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "GC-SMALL",
		Amount:              decimal.NewFromInt(500),
		ClientTransactionID: "txn-over",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, enums.ErrorCodeGiftCardInsufficientBalance, result.ErrorCode)
}

func TestDebitGiftCardScopeRestrictions(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	allowed := uuid.New()
	card := f.newCard(t, "GC-SCOPED", 1000)
	require.NoError(t, f.conn.Model(card).UpdateColumns(map[string]any{
		"store_limited":     true,
		"allowed_store_ids": allowed.String(),
	}).Error)

	other := uuid.New()
	result, err := f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "GC-SCOPED",
		Amount:              decimal.NewFromInt(100),
		ClientTransactionID: "txn-scope-1",
		APIUserID:           uuid.New(),
		StoreID:             &other,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, enums.ErrorCodeGiftCardStoreNotAllowed, result.ErrorCode)

	result, err = f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "GC-SCOPED",
		Amount:              decimal.NewFromInt(100),
		ClientTransactionID: "txn-scope-2",
		APIUserID:           uuid.New(),
		StoreID:             &allowed,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestDebitGiftCardIdempotentReplay(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.newCard(t, "GC-REPLAY", 1000)
	actor := uuid.New()

	input := DebitGiftCardInput{
		SerialNumber:        "GC-REPLAY",
		Amount:              decimal.NewFromInt(300),
		ClientTransactionID: "pos-replay-1",
		APIUserID:           actor,
	}

	first, err := f.svc.DebitGiftCard(ctx, input)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.svc.DebitGiftCard(ctx, input)
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, second.Balance.Equal(first.Balance))

	// The replay must not have debited again.
	assert.EqualValues(t, 1, f.ledgerCount(t, "gift_card_transactions"))

	// Same key with a different payload is a hard rejection.
	altered := input
	altered.Amount = decimal.NewFromInt(400)
	conflicted, err := f.svc.DebitGiftCard(ctx, altered)
	require.NoError(t, err)
	assert.False(t, conflicted.Success)
	assert.Equal(t, enums.ErrorCodeDuplicateClientTransaction, conflicted.ErrorCode)
}

func TestSettleGiftCardDebitLifecycle(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	card := f.newCard(t, "GC-SETTLE", 5000)

	debit, err := f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "GC-SETTLE",
		Amount:              decimal.NewFromInt(2000),
		ClientTransactionID: "txn-settle-1",
		APIUserID:           actor,
	})
	require.NoError(t, err)
	require.True(t, debit.Success)

	confirm, err := f.svc.SettleGiftCardDebit(ctx, SettleInput{
		TransactionID:       debit.TransactionID,
		ClientTransactionID: "txn-settle-1-confirm",
		APIUserID:           actor,
	}, enums.TransactionTypeConfirmation)
	require.NoError(t, err)
	require.True(t, confirm.Success)
	assert.True(t, confirm.Balance.Equal(decimal.NewFromInt(3000)), "confirmation keeps funds consumed")

	origin, err := f.giftLedger.FindByTransactionID(ctx, debit.TransactionID, enums.TransactionTypeDebit)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusConfirmed, origin.Status)

	// Terminal exclusivity: any further settlement is rejected with the
	// status-specific code.
	refund, err := f.svc.SettleGiftCardDebit(ctx, SettleInput{
		TransactionID:       debit.TransactionID,
		ClientTransactionID: "txn-settle-1-refund",
		APIUserID:           actor,
	}, enums.TransactionTypeRefund)
	require.NoError(t, err)
	assert.False(t, refund.Success)
	assert.Equal(t, enums.ErrorCodeTransactionAlreadyConfirmed, refund.ErrorCode)

	reloaded, err := f.giftCards.FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(decimal.NewFromInt(3000)))
}

func TestReverseGiftCardDebitRestoresBalance(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	card := f.newCard(t, "GC-REVERSE", 5000)

	debit, err := f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "GC-REVERSE",
		Amount:              decimal.NewFromInt(2000),
		ClientTransactionID: "txn-rev-1",
		APIUserID:           actor,
	})
	require.NoError(t, err)

	reverse, err := f.svc.SettleGiftCardDebit(ctx, SettleInput{
		TransactionID:       debit.TransactionID,
		ClientTransactionID: "txn-rev-1-reverse",
		APIUserID:           actor,
	}, enums.TransactionTypeReversal)
	require.NoError(t, err)
	require.True(t, reverse.Success)
	assert.True(t, reverse.Balance.Equal(decimal.NewFromInt(5000)))

	reloaded, err := f.giftCards.FindByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 0, reloaded.CurrentUsageCount)

	origin, err := f.giftLedger.FindByTransactionID(ctx, debit.TransactionID, enums.TransactionTypeDebit)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusReversed, origin.Status)
}

func TestSettleUnknownTransaction(t *testing.T) {
	f := newSettlementFixture(t)

	result, err := f.svc.SettleGiftCardDebit(context.Background(), SettleInput{
		TransactionID:       uuid.New(),
		ClientTransactionID: "txn-ghost",
		APIUserID:           uuid.New(),
	}, enums.TransactionTypeConfirmation)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, enums.ErrorCodeTransactionNotFound, result.ErrorCode)
}

func TestRedeemDiscountCodeComputesDiscount(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	code := f.newPercentageCode(t, "SAVE10", 10, 5)
	require.NoError(t, f.conn.Model(code).UpdateColumns(map[string]any{
		"max_discount_amount": decimal.NewFromInt(50),
		"minimum_bill_amount": decimal.NewFromInt(100),
	}).Error)

	below, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "SAVE10",
		BillAmount:          decimal.NewFromInt(50),
		ClientTransactionID: "redeem-below",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	assert.False(t, below.Success)
	assert.Equal(t, enums.ErrorCodeDiscountCodeMinimumBillNotMet, below.ErrorCode)

	ok, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "save10",
		BillAmount:          decimal.NewFromInt(200),
		ClientTransactionID: "redeem-ok",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, ok.Success)
	assert.True(t, ok.Amount.Equal(decimal.NewFromInt(20)))

	capped, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "SAVE10",
		BillAmount:          decimal.NewFromInt(2000),
		ClientTransactionID: "redeem-capped",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, capped.Success)
	assert.True(t, capped.Amount.Equal(decimal.NewFromInt(50)))
}

func TestRedeemDiscountCodeUsageLimit(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.newPercentageCode(t, "ONCE", 10, 1)

	first, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "ONCE",
		BillAmount:          decimal.NewFromInt(100),
		ClientTransactionID: "once-1",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "ONCE",
		BillAmount:          decimal.NewFromInt(100),
		ClientTransactionID: "once-2",
		APIUserID:           uuid.New(),
	})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, enums.ErrorCodeDiscountCodeUsageLimitReached, second.ErrorCode)

	// The rejection must not append a ledger entry.
	assert.EqualValues(t, 1, f.ledgerCount(t, "discount_code_transactions"))
}

func TestReverseRedemptionRestoresUsage(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	code := f.newPercentageCode(t, "AGAIN", 10, 1)

	redeem, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "AGAIN",
		BillAmount:          decimal.NewFromInt(100),
		ClientTransactionID: "again-1",
		APIUserID:           actor,
	})
	require.NoError(t, err)
	require.True(t, redeem.Success)

	reverse, err := f.svc.SettleDiscountCodeRedemption(ctx, SettleInput{
		TransactionID:       redeem.TransactionID,
		ClientTransactionID: "again-1-reverse",
		APIUserID:           actor,
	}, enums.TransactionTypeReversal)
	require.NoError(t, err)
	require.True(t, reverse.Success)

	reloaded, err := f.codes.FindByID(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentUsageCount)
	assert.False(t, reloaded.Used)

	// The code is usable again after the reversal.
	retry, err := f.svc.RedeemDiscountCode(ctx, RedeemDiscountCodeInput{
		Code:                "AGAIN",
		BillAmount:          decimal.NewFromInt(100),
		ClientTransactionID: "again-2",
		APIUserID:           actor,
	})
	require.NoError(t, err)
	assert.True(t, retry.Success)
}

func TestSettleIdempotentReplay(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()
	actor := uuid.New()

	f.newCard(t, "GC-SETTLE-REPLAY", 1000)

	debit, err := f.svc.DebitGiftCard(ctx, DebitGiftCardInput{
		SerialNumber:        "GC-SETTLE-REPLAY",
		Amount:              decimal.NewFromInt(500),
		ClientTransactionID: "sr-1",
		APIUserID:           actor,
	})
	require.NoError(t, err)

	settleInput := SettleInput{
		TransactionID:       debit.TransactionID,
		ClientTransactionID: "sr-1-confirm",
		APIUserID:           actor,
	}
	first, err := f.svc.SettleGiftCardDebit(ctx, settleInput, enums.TransactionTypeConfirmation)
	require.NoError(t, err)
	require.True(t, first.Success)

	// Retrying the same confirmation hits the terminal guard, not the
	// idempotency path, because the origin is no longer pending.
	second, err := f.svc.SettleGiftCardDebit(ctx, settleInput, enums.TransactionTypeConfirmation)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, enums.ErrorCodeTransactionAlreadyConfirmed, second.ErrorCode)
}
