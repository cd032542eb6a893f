package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/api/responses"
	"github.com/mason-hale/giftledger-backend/api/validators"
	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/internal/settlement"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
)

type giftCardIssueRequest struct {
	SerialNumber           string     `json:"serial_number"`
	InitialAmount          string     `json:"initial_amount" validate:"required"`
	UsageLimit             int        `json:"usage_limit" validate:"min=0"`
	CustomerID             *string    `json:"customer_id"`
	ExpiryDate             *time.Time `json:"expiry_date"`
	StoreLimited           bool       `json:"store_limited"`
	AllowedStoreIDs        []string   `json:"allowed_store_ids"`
	ItemCategoryLimited    bool       `json:"item_category_limited"`
	AllowedItemCategoryIDs []string   `json:"allowed_item_category_ids"`
}

// GiftCardIssue mints a single card for the acting company.
func GiftCardIssue(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload giftCardIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.InitialAmount, "initial_amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := parseOptionalUUID(payload.CustomerID, "customer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeIDs, err := parseUUIDList(payload.AllowedStoreIDs, "allowed_store_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryIDs, err := parseUUIDList(payload.AllowedItemCategoryIDs, "allowed_item_category_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.IssueGiftCard(r.Context(), instruments.IssueGiftCardInput{
			CompanyID:              act.CompanyID,
			CustomerID:             customerID,
			SerialNumber:           payload.SerialNumber,
			InitialAmount:          amount,
			UsageLimit:             payload.UsageLimit,
			ExpiryDate:             payload.ExpiryDate,
			StoreLimited:           payload.StoreLimited,
			AllowedStoreIDs:        storeIDs,
			ItemCategoryLimited:    payload.ItemCategoryLimited,
			AllowedItemCategoryIDs: categoryIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, giftCardResponseFromModel(card))
	}
}

// GiftCardDetail returns the card state including the current usability
// verdict, evaluated at request time.
func GiftCardDetail(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := cardForCompany(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, giftCardResponseFromModel(card))
	}
}

// GiftCardTransactions lists the card's ledger entries, newest first.
func GiftCardTransactions(svc instruments.Service, giftLedger ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := cardForCompany(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}

		entries, next, err := giftLedger.ListByInstrument(r.Context(), card.ID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]ledgerEntryResponse, 0, len(entries))
		for i := range entries {
			items = append(items, ledgerEntryResponseFromEntry(&entries[i]))
		}
		payload := map[string]any{"items": items}
		if next != nil {
			payload["next_cursor"] = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, payload)
	}
}

type giftCardDebitRequest struct {
	SerialNumber        string  `json:"serial_number" validate:"required"`
	Amount              string  `json:"amount" validate:"required"`
	ClientTransactionID string  `json:"client_transaction_id" validate:"required,max=128"`
	CustomerID          *string `json:"customer_id"`
	StoreID             *string `json:"store_id"`
	ItemCategoryID      *string `json:"item_category_id"`
}

// GiftCardDebit opens a pending debit against the card balance.
func GiftCardDebit(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload giftCardDebitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.Amount, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := parseOptionalUUID(payload.CustomerID, "customer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := parseOptionalUUID(payload.StoreID, "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := parseOptionalUUID(payload.ItemCategoryID, "item_category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DebitGiftCard(r.Context(), settlement.DebitGiftCardInput{
			SerialNumber:        payload.SerialNumber,
			Amount:              amount,
			ClientTransactionID: payload.ClientTransactionID,
			APIUserID:           act.APIUserID,
			CustomerID:          customerID,
			StoreID:             storeID,
			ItemCategoryID:      categoryID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlementResponseFromResult(result))
	}
}

type settleRequest struct {
	ClientTransactionID string `json:"client_transaction_id" validate:"required,max=128"`
}

// GiftCardSettle finalizes a pending debit with the given settlement type.
func GiftCardSettle(svc settlement.Service, settleType enums.TransactionType, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactionID, err := validators.ParsePathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload settleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SettleGiftCardDebit(r.Context(), settlement.SettleInput{
			TransactionID:       transactionID,
			ClientTransactionID: payload.ClientTransactionID,
			APIUserID:           act.APIUserID,
		}, settleType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlementResponseFromResult(result))
	}
}

type blockRequest struct {
	BlockedBy *string `json:"blocked_by"`
}

// GiftCardBlock freezes a card against further debits.
func GiftCardBlock(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload blockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		blockedBy, err := parseOptionalUUID(payload.BlockedBy, "blocked_by")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card, err := svc.BlockGiftCard(r.Context(), chi.URLParam(r, "serial"), blockedBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, giftCardResponseFromModel(card))
	}
}

// GiftCardUnblock lifts an administrative freeze.
func GiftCardUnblock(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		card, err := svc.UnblockGiftCard(r.Context(), chi.URLParam(r, "serial"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, giftCardResponseFromModel(card))
	}
}

// cardForCompany fetches the card and enforces company ownership.
func cardForCompany(r *http.Request, svc instruments.Service) (*models.GiftCard, error) {
	act, err := actorFromRequest(r)
	if err != nil {
		return nil, err
	}
	card, err := svc.GetGiftCardBySerial(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		return nil, err
	}
	if card.CompanyID != act.CompanyID {
		return nil, pkgerrors.Domain(pkgerrors.CodeNotFound, enums.ErrorCodeGiftCardNotFound, "gift card not found")
	}
	return card, nil
}

type giftCardResponse struct {
	ID                uuid.UUID       `json:"id"`
	SerialNumber      string          `json:"serial_number"`
	CompanyID         uuid.UUID       `json:"company_id"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	BatchID           *uuid.UUID      `json:"batch_id,omitempty"`
	InitialAmount     decimal.Decimal `json:"initial_amount"`
	Balance           decimal.Decimal `json:"balance"`
	UsageLimit        int             `json:"usage_limit"`
	CurrentUsageCount int             `json:"current_usage_count"`
	Used              bool            `json:"used"`
	IsActive          bool            `json:"is_active"`
	Blocked           bool            `json:"blocked"`
	IssueDate         time.Time       `json:"issue_date"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	LastUsedAt        *time.Time      `json:"last_used_at,omitempty"`
	Usable            bool            `json:"usable"`
	UsabilityCode     int             `json:"usability_code,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func giftCardResponseFromModel(m *models.GiftCard) giftCardResponse {
	now := time.Now().UTC()
	code := m.UsabilityCode(now)
	return giftCardResponse{
		ID:                m.ID,
		SerialNumber:      m.SerialNumber,
		CompanyID:         m.CompanyID,
		CustomerID:        m.CustomerID,
		BatchID:           m.BatchID,
		InitialAmount:     m.InitialAmount,
		Balance:           m.Balance,
		UsageLimit:        m.UsageLimit,
		CurrentUsageCount: m.CurrentUsageCount,
		Used:              m.Used,
		IsActive:          m.IsActive,
		Blocked:           m.Blocked,
		IssueDate:         m.IssueDate,
		ExpiryDate:        m.ExpiryDate,
		LastUsedAt:        m.LastUsedAt,
		Usable:            code == enums.ErrorCodeNone,
		UsabilityCode:     int(code),
		CreatedAt:         m.CreatedAt,
	}
}

type ledgerEntryResponse struct {
	TransactionID       uuid.UUID               `json:"transaction_id"`
	ClientTransactionID string                  `json:"client_transaction_id"`
	Type                enums.TransactionType   `json:"type"`
	Status              enums.TransactionStatus `json:"status"`
	OriginalAmount      decimal.Decimal         `json:"original_amount"`
	Amount              decimal.Decimal         `json:"amount"`
	BalanceBefore       decimal.Decimal         `json:"balance_before"`
	OriginTransactionID *uuid.UUID              `json:"origin_transaction_id,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
}

func ledgerEntryResponseFromEntry(e *ledger.Entry) ledgerEntryResponse {
	return ledgerEntryResponse{
		TransactionID:       e.TransactionID,
		ClientTransactionID: e.ClientTransactionID,
		Type:                e.Type,
		Status:              e.Status,
		OriginalAmount:      e.OriginalAmount,
		Amount:              e.Amount,
		BalanceBefore:       e.BalanceBefore,
		OriginTransactionID: e.OriginTransactionID,
		CreatedAt:           e.CreatedAt,
	}
}
