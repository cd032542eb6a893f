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

type discountCodeIssueRequest struct {
	Code                   string     `json:"code"`
	DiscountType           string     `json:"discount_type" validate:"required"`
	Percentage             string     `json:"percentage"`
	ConstantDiscountAmount string     `json:"constant_discount_amount"`
	MaxDiscountAmount      string     `json:"max_discount_amount"`
	MinimumBillAmount      string     `json:"minimum_bill_amount"`
	UsageLimit             int        `json:"usage_limit" validate:"min=0"`
	CustomerID             *string    `json:"customer_id"`
	ExpiryDate             *time.Time `json:"expiry_date"`
	StoreLimited           bool       `json:"store_limited"`
	AllowedStoreIDs        []string   `json:"allowed_store_ids"`
	ItemCategoryLimited    bool       `json:"item_category_limited"`
	AllowedItemCategoryIDs []string   `json:"allowed_item_category_ids"`
}

func (req discountCodeIssueRequest) toInput(act actor) (instruments.IssueDiscountCodeInput, error) {
	discountType, err := enums.ParseDiscountType(req.DiscountType)
	if err != nil {
		return instruments.IssueDiscountCodeInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}

	input := instruments.IssueDiscountCodeInput{
		CompanyID:           act.CompanyID,
		Code:                req.Code,
		DiscountType:        discountType,
		UsageLimit:          req.UsageLimit,
		ExpiryDate:          req.ExpiryDate,
		StoreLimited:        req.StoreLimited,
		ItemCategoryLimited: req.ItemCategoryLimited,
	}

	for _, field := range []struct {
		raw  string
		name string
		dest *decimal.Decimal
	}{
		{req.Percentage, "percentage", &input.Percentage},
		{req.ConstantDiscountAmount, "constant_discount_amount", &input.ConstantDiscountAmount},
		{req.MaxDiscountAmount, "max_discount_amount", &input.MaxDiscountAmount},
		{req.MinimumBillAmount, "minimum_bill_amount", &input.MinimumBillAmount},
	} {
		if field.raw == "" {
			continue
		}
		value, err := parseAmount(field.raw, field.name)
		if err != nil {
			return instruments.IssueDiscountCodeInput{}, err
		}
		*field.dest = value
	}

	input.CustomerID, err = parseOptionalUUID(req.CustomerID, "customer_id")
	if err != nil {
		return instruments.IssueDiscountCodeInput{}, err
	}
	input.AllowedStoreIDs, err = parseUUIDList(req.AllowedStoreIDs, "allowed_store_ids")
	if err != nil {
		return instruments.IssueDiscountCodeInput{}, err
	}
	input.AllowedItemCategoryIDs, err = parseUUIDList(req.AllowedItemCategoryIDs, "allowed_item_category_ids")
	if err != nil {
		return instruments.IssueDiscountCodeInput{}, err
	}
	return input, nil
}

// DiscountCodeIssue mints a single code for the acting company.
func DiscountCodeIssue(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountCodeIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.IssueDiscountCode(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, discountCodeResponseFromModel(code))
	}
}

// DiscountCodeDetail returns the code state with its usability verdict.
func DiscountCodeDetail(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := codeForCompany(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discountCodeResponseFromModel(code))
	}
}

// DiscountCodeTransactions lists the code's ledger entries, newest first.
func DiscountCodeTransactions(svc instruments.Service, codeLedger ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := codeForCompany(r, svc)
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

		entries, next, err := codeLedger.ListByInstrument(r.Context(), code.ID, params)
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

type discountCodeRedeemRequest struct {
	Code                string  `json:"code" validate:"required"`
	BillAmount          string  `json:"bill_amount" validate:"required"`
	ClientTransactionID string  `json:"client_transaction_id" validate:"required,max=128"`
	CustomerID          *string `json:"customer_id"`
	StoreID             *string `json:"store_id"`
	ItemCategoryID      *string `json:"item_category_id"`
}

// DiscountCodeRedeem opens a pending redemption and computes the discount.
func DiscountCodeRedeem(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountCodeRedeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		billAmount, err := parseAmount(payload.BillAmount, "bill_amount")
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

		result, err := svc.RedeemDiscountCode(r.Context(), settlement.RedeemDiscountCodeInput{
			Code:                payload.Code,
			BillAmount:          billAmount,
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

// DiscountCodeSettle finalizes a pending redemption.
func DiscountCodeSettle(svc settlement.Service, settleType enums.TransactionType, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.SettleDiscountCodeRedemption(r.Context(), settlement.SettleInput{
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

// DiscountCodeBlock freezes a code against further redemptions.
func DiscountCodeBlock(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
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

		code, err := svc.BlockDiscountCode(r.Context(), chi.URLParam(r, "code"), blockedBy)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discountCodeResponseFromModel(code))
	}
}

// DiscountCodeUnblock lifts an administrative freeze.
func DiscountCodeUnblock(svc instruments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code, err := svc.UnblockDiscountCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discountCodeResponseFromModel(code))
	}
}

func codeForCompany(r *http.Request, svc instruments.Service) (*models.DiscountCode, error) {
	act, err := actorFromRequest(r)
	if err != nil {
		return nil, err
	}
	code, err := svc.GetDiscountCodeByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		return nil, err
	}
	if code.CompanyID != act.CompanyID {
		return nil, pkgerrors.Domain(pkgerrors.CodeNotFound, enums.ErrorCodeDiscountCodeNotFound, "discount code not found")
	}
	return code, nil
}

type discountCodeResponse struct {
	ID                     uuid.UUID          `json:"id"`
	Code                   string             `json:"code"`
	CompanyID              uuid.UUID          `json:"company_id"`
	CustomerID             *uuid.UUID         `json:"customer_id,omitempty"`
	BatchID                *uuid.UUID         `json:"batch_id,omitempty"`
	DiscountType           enums.DiscountType `json:"discount_type"`
	Percentage             decimal.Decimal    `json:"percentage"`
	ConstantDiscountAmount decimal.Decimal    `json:"constant_discount_amount"`
	MaxDiscountAmount      decimal.Decimal    `json:"max_discount_amount"`
	MinimumBillAmount      decimal.Decimal    `json:"minimum_bill_amount"`
	UsageLimit             int                `json:"usage_limit"`
	CurrentUsageCount      int                `json:"current_usage_count"`
	Used                   bool               `json:"used"`
	IsActive               bool               `json:"is_active"`
	Blocked                bool               `json:"blocked"`
	IssueDate              time.Time          `json:"issue_date"`
	ExpiryDate             *time.Time         `json:"expiry_date,omitempty"`
	LastUsedAt             *time.Time         `json:"last_used_at,omitempty"`
	Usable                 bool               `json:"usable"`
	UsabilityCode          int                `json:"usability_code,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
}

func discountCodeResponseFromModel(m *models.DiscountCode) discountCodeResponse {
	now := time.Now().UTC()
	code := m.UsabilityCode(now)
	return discountCodeResponse{
		ID:                     m.ID,
		Code:                   m.Code,
		CompanyID:              m.CompanyID,
		CustomerID:             m.CustomerID,
		BatchID:                m.BatchID,
		DiscountType:           m.DiscountType,
		Percentage:             m.Percentage,
		ConstantDiscountAmount: m.ConstantDiscountAmount,
		MaxDiscountAmount:      m.MaxDiscountAmount,
		MinimumBillAmount:      m.MinimumBillAmount,
		UsageLimit:             m.UsageLimit,
		CurrentUsageCount:      m.CurrentUsageCount,
		Used:                   m.Used,
		IsActive:               m.IsActive,
		Blocked:                m.Blocked,
		IssueDate:              m.IssueDate,
		ExpiryDate:             m.ExpiryDate,
		LastUsedAt:             m.LastUsedAt,
		Usable:                 code == enums.ErrorCodeNone,
		UsabilityCode:          int(code),
		CreatedAt:              m.CreatedAt,
	}
}
