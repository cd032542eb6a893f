package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/pkg/db"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	apperrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

// errRaceLost aborts a transaction when a guarded update matched zero rows,
// meaning a concurrent writer got there first.
var errRaceLost = errors.New("settlement race lost")

// Service drives the ledger state machine: originating debits and redeems,
// and the three terminal settlements. Every mutation couples its ledger write
// and instrument write in one database transaction.
type Service interface {
	DebitGiftCard(ctx context.Context, input DebitGiftCardInput) (*Result, error)
	RedeemDiscountCode(ctx context.Context, input RedeemDiscountCodeInput) (*Result, error)
	SettleGiftCardDebit(ctx context.Context, input SettleInput, settleType enums.TransactionType) (*Result, error)
	SettleDiscountCodeRedemption(ctx context.Context, input SettleInput, settleType enums.TransactionType) (*Result, error)
}

type service struct {
	client        *db.Client
	giftCards     instruments.GiftCardRepository
	discountCodes instruments.DiscountCodeRepository
	giftLedger    ledger.Repository
	codeLedger    ledger.Repository
	logg          *logger.Logger
}

// NewService wires a settlement service over the instrument and ledger repositories.
func NewService(
	client *db.Client,
	giftCards instruments.GiftCardRepository,
	discountCodes instruments.DiscountCodeRepository,
	giftLedger ledger.Repository,
	codeLedger ledger.Repository,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if giftCards == nil || discountCodes == nil {
		return nil, fmt.Errorf("instrument repositories required")
	}
	if giftLedger == nil || codeLedger == nil {
		return nil, fmt.Errorf("ledger repositories required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		client:        client,
		giftCards:     giftCards,
		discountCodes: discountCodes,
		giftLedger:    giftLedger,
		codeLedger:    codeLedger,
		logg:          logg,
	}, nil
}

// DebitGiftCardInput opens a gift card settlement window.
type DebitGiftCardInput struct {
	SerialNumber        string
	Amount              decimal.Decimal
	ClientTransactionID string
	APIUserID           uuid.UUID
	CustomerID          *uuid.UUID
	StoreID             *uuid.UUID
	ItemCategoryID      *uuid.UUID
}

// RedeemDiscountCodeInput opens a discount code settlement window.
type RedeemDiscountCodeInput struct {
	Code                string
	BillAmount          decimal.Decimal
	ClientTransactionID string
	APIUserID           uuid.UUID
	CustomerID          *uuid.UUID
	StoreID             *uuid.UUID
	ItemCategoryID      *uuid.UUID
}

// SettleInput finalizes a previously opened settlement window.
type SettleInput struct {
	TransactionID       uuid.UUID
	ClientTransactionID string
	APIUserID           uuid.UUID
}

func statusForSettleType(settleType enums.TransactionType) (enums.TransactionStatus, error) {
	switch settleType {
	case enums.TransactionTypeConfirmation:
		return enums.TransactionStatusConfirmed, nil
	case enums.TransactionTypeReversal:
		return enums.TransactionStatusReversed, nil
	case enums.TransactionTypeRefund:
		return enums.TransactionStatusRefunded, nil
	default:
		return "", fmt.Errorf("type %q does not settle", settleType)
	}
}

// releasesFunds reports whether a settlement returns the reserved value to
// the instrument. Confirmation keeps the reservation consumed.
func releasesFunds(settleType enums.TransactionType) bool {
	return settleType == enums.TransactionTypeReversal || settleType == enums.TransactionTypeRefund
}

func (s *service) DebitGiftCard(ctx context.Context, input DebitGiftCardInput) (*Result, error) {
	if input.ClientTransactionID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "client transaction id is required")
	}
	if input.APIUserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "api user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	serial := instruments.NormalizeSerial(input.SerialNumber)
	if serial == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "serial number is required")
	}

	card, err := s.giftCards.FindBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failure(enums.ErrorCodeGiftCardNotFound, "gift card not found"), nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	if code := card.UsabilityCode(now); code != enums.ErrorCodeNone {
		return failure(code, "gift card is not usable"), nil
	}
	if !card.AllowsStore(input.StoreID) {
		return failure(enums.ErrorCodeGiftCardStoreNotAllowed, "gift card cannot be used at this store"), nil
	}
	if !card.AllowsItemCategory(input.ItemCategoryID) {
		return failure(enums.ErrorCodeGiftCardCategoryNotAllowed, "gift card cannot be used for this item category"), nil
	}
	if card.Balance.LessThan(input.Amount) {
		return failure(enums.ErrorCodeGiftCardInsufficientBalance, "gift card balance is insufficient"), nil
	}

	entry := &ledger.Entry{
		ID:                  uuid.New(),
		TransactionID:       uuid.New(),
		ClientTransactionID: input.ClientTransactionID,
		Type:                enums.TransactionTypeDebit,
		Status:              enums.TransactionStatusPending,
		InstrumentID:        card.ID,
		APIUserID:           input.APIUserID,
		CustomerID:          input.CustomerID,
		StoreID:             input.StoreID,
		OriginalAmount:      input.Amount,
		Amount:              input.Amount,
		BalanceBefore:       card.Balance,
	}

	var raceLost bool
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.giftLedger.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
		ok, err := s.giftCards.WithTx(tx).ReserveAmount(ctx, card.ID, input.Amount, now)
		if err != nil {
			return err
		}
		if !ok {
			raceLost = true
			return errRaceLost
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "client_transaction") {
			return s.replay(ctx, s.giftLedger, entry)
		}
		if raceLost {
			// A concurrent debit changed the card between read and reserve.
			fresh, ferr := s.giftCards.FindByID(ctx, card.ID)
			if ferr != nil {
				return nil, ferr
			}
			if code := fresh.UsabilityCode(now); code != enums.ErrorCodeNone {
				return failure(code, "gift card is not usable"), nil
			}
			return failure(enums.ErrorCodeGiftCardInsufficientBalance, "gift card balance is insufficient"), nil
		}
		return nil, err
	}

	ctx = s.logg.WithTransactionID(ctx, entry.TransactionID.String())
	s.logg.Info(ctx, "gift card debit recorded")

	return &Result{
		Success:       true,
		TransactionID: entry.TransactionID,
		Amount:        input.Amount,
		Balance:       card.Balance.Sub(input.Amount),
	}, nil
}

func (s *service) RedeemDiscountCode(ctx context.Context, input RedeemDiscountCodeInput) (*Result, error) {
	if input.ClientTransactionID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "client transaction id is required")
	}
	if input.APIUserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "api user id is required")
	}
	if !input.BillAmount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "bill amount must be positive")
	}
	value := instruments.NormalizeCode(input.Code)
	if value == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "discount code is required")
	}

	code, err := s.discountCodes.FindByCode(ctx, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failure(enums.ErrorCodeDiscountCodeNotFound, "discount code not found"), nil
		}
		return nil, err
	}

	now := time.Now().UTC()
	if errCode := code.UsabilityCode(now); errCode != enums.ErrorCodeNone {
		return failure(errCode, "discount code is not usable"), nil
	}
	if !code.AllowsStore(input.StoreID) {
		return failure(enums.ErrorCodeDiscountCodeStoreNotAllowed, "discount code cannot be used at this store"), nil
	}
	if !code.AllowsItemCategory(input.ItemCategoryID) {
		return failure(enums.ErrorCodeDiscountCodeCategoryNotAllowed, "discount code cannot be used for this item category"), nil
	}
	if code.MinimumBillAmount.IsPositive() && input.BillAmount.LessThan(code.MinimumBillAmount) {
		return failure(enums.ErrorCodeDiscountCodeMinimumBillNotMet, "bill amount is below the code minimum"), nil
	}

	discount := code.DiscountFor(input.BillAmount)
	entry := &ledger.Entry{
		ID:                  uuid.New(),
		TransactionID:       uuid.New(),
		ClientTransactionID: input.ClientTransactionID,
		Type:                enums.TransactionTypeRedeem,
		Status:              enums.TransactionStatusPending,
		InstrumentID:        code.ID,
		APIUserID:           input.APIUserID,
		CustomerID:          input.CustomerID,
		StoreID:             input.StoreID,
		OriginalAmount:      input.BillAmount,
		Amount:              discount,
	}

	var raceLost bool
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.codeLedger.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
		ok, err := s.discountCodes.WithTx(tx).ReserveUsage(ctx, code.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			raceLost = true
			return errRaceLost
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "client_transaction") {
			return s.replay(ctx, s.codeLedger, entry)
		}
		if raceLost {
			fresh, ferr := s.discountCodes.FindByID(ctx, code.ID)
			if ferr != nil {
				return nil, ferr
			}
			if errCode := fresh.UsabilityCode(now); errCode != enums.ErrorCodeNone {
				return failure(errCode, "discount code is not usable"), nil
			}
			return failure(enums.ErrorCodeDiscountCodeUsageLimitReached, "discount code usage limit reached"), nil
		}
		return nil, err
	}

	ctx = s.logg.WithTransactionID(ctx, entry.TransactionID.String())
	s.logg.Info(ctx, "discount code redemption recorded")

	return &Result{
		Success:       true,
		TransactionID: entry.TransactionID,
		Amount:        discount,
	}, nil
}

func (s *service) SettleGiftCardDebit(ctx context.Context, input SettleInput, settleType enums.TransactionType) (*Result, error) {
	return s.settle(ctx, settleParams{
		ledger:     s.giftLedger,
		originType: enums.TransactionTypeDebit,
		prepare: func(ctx context.Context, tx *gorm.DB, entry *ledger.Entry) error {
			card, err := s.giftCards.WithTx(tx).FindByID(ctx, entry.InstrumentID)
			if err != nil {
				return err
			}
			entry.BalanceBefore = card.Balance
			return nil
		},
		release: func(ctx context.Context, tx *gorm.DB, entry *ledger.Entry, now time.Time) error {
			ok, err := s.giftCards.WithTx(tx).ReleaseAmount(ctx, entry.InstrumentID, entry.Amount, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("gift card %s missing during release", entry.InstrumentID)
			}
			return nil
		},
		balanceAfter: func(entry *ledger.Entry, released bool) decimal.Decimal {
			if released {
				return entry.BalanceBefore.Add(entry.Amount)
			}
			return entry.BalanceBefore
		},
	}, input, settleType)
}

func (s *service) SettleDiscountCodeRedemption(ctx context.Context, input SettleInput, settleType enums.TransactionType) (*Result, error) {
	return s.settle(ctx, settleParams{
		ledger:     s.codeLedger,
		originType: enums.TransactionTypeRedeem,
		release: func(ctx context.Context, tx *gorm.DB, entry *ledger.Entry, now time.Time) error {
			ok, err := s.discountCodes.WithTx(tx).ReleaseUsage(ctx, entry.InstrumentID, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("discount code %s missing during release", entry.InstrumentID)
			}
			return nil
		},
	}, input, settleType)
}

type settleParams struct {
	ledger     ledger.Repository
	originType enums.TransactionType
	// prepare runs inside the transaction before the settlement entry is
	// written; gift cards use it to snapshot the pre-release balance.
	prepare func(ctx context.Context, tx *gorm.DB, entry *ledger.Entry) error
	release func(ctx context.Context, tx *gorm.DB, entry *ledger.Entry, now time.Time) error
	// balanceAfter derives the reported balance from the settlement entry.
	balanceAfter func(entry *ledger.Entry, released bool) decimal.Decimal
}

func (s *service) settle(ctx context.Context, params settleParams, input SettleInput, settleType enums.TransactionType) (*Result, error) {
	if input.ClientTransactionID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "client transaction id is required")
	}
	if input.APIUserID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "api user id is required")
	}
	if input.TransactionID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "transaction id is required")
	}
	terminal, err := statusForSettleType(settleType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid settlement type")
	}

	origin, err := params.ledger.FindByTransactionID(ctx, input.TransactionID, params.originType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failure(enums.ErrorCodeTransactionNotFound, "transaction not found"), nil
		}
		return nil, err
	}
	if origin.Status != enums.TransactionStatusPending {
		return failure(alreadySettledCode(origin.Status), fmt.Sprintf("transaction is already %s", origin.Status)), nil
	}

	now := time.Now().UTC()
	entry := &ledger.Entry{
		ID:                  uuid.New(),
		TransactionID:       uuid.New(),
		ClientTransactionID: input.ClientTransactionID,
		Type:                settleType,
		Status:              terminal,
		InstrumentID:        origin.InstrumentID,
		APIUserID:           input.APIUserID,
		CustomerID:          origin.CustomerID,
		StoreID:             origin.StoreID,
		OriginalAmount:      origin.OriginalAmount,
		Amount:              origin.Amount,
		OriginTransactionID: &origin.TransactionID,
	}

	released := releasesFunds(settleType)
	var raceLost bool
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if params.prepare != nil {
			if err := params.prepare(ctx, tx, entry); err != nil {
				return err
			}
		}
		if err := params.ledger.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
		if released {
			if err := params.release(ctx, tx, entry, now); err != nil {
				return err
			}
		}
		ok, err := params.ledger.WithTx(tx).MarkStatus(ctx, origin.ID, terminal, now)
		if err != nil {
			return err
		}
		if !ok {
			raceLost = true
			return errRaceLost
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "client_transaction") {
			return s.replay(ctx, params.ledger, entry)
		}
		if raceLost {
			fresh, ferr := params.ledger.FindByTransactionID(ctx, input.TransactionID, params.originType)
			if ferr != nil {
				return nil, ferr
			}
			return failure(alreadySettledCode(fresh.Status), fmt.Sprintf("transaction is already %s", fresh.Status)), nil
		}
		return nil, err
	}

	ctx = s.logg.WithTransactionID(ctx, entry.TransactionID.String())
	s.logg.Info(ctx, fmt.Sprintf("%s settled", params.originType))

	result := &Result{
		Success:       true,
		TransactionID: entry.TransactionID,
		Amount:        entry.Amount,
	}
	if params.balanceAfter != nil {
		result.Balance = params.balanceAfter(entry, released)
	}
	return result, nil
}

// replay resolves a client transaction id collision: an identical payload is
// an idempotent retry and returns the original outcome, anything else is a
// key reuse rejection.
func (s *service) replay(ctx context.Context, repo ledger.Repository, attempted *ledger.Entry) (*Result, error) {
	existing, err := repo.FindByClientTransactionID(ctx, attempted.ClientTransactionID, attempted.Type, attempted.APIUserID)
	if err != nil {
		return nil, err
	}
	if !existing.SamePayload(attempted) {
		return failure(enums.ErrorCodeDuplicateClientTransaction, "client transaction id already used with a different payload"), nil
	}

	result := &Result{
		Success:       true,
		Replayed:      true,
		TransactionID: existing.TransactionID,
		Amount:        existing.Amount,
	}
	if repo.Kind() == enums.InstrumentKindGiftCard && attempted.Type == enums.TransactionTypeDebit {
		result.Balance = existing.BalanceBefore.Sub(existing.Amount)
	}
	return result, nil
}
