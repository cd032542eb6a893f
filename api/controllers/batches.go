package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/api/responses"
	"github.com/mason-hale/giftledger-backend/api/validators"
	"github.com/mason-hale/giftledger-backend/internal/batches"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
)

type giftCardBatchRequest struct {
	Count                  int        `json:"count" validate:"required,min=1"`
	InitialAmount          string     `json:"initial_amount" validate:"required"`
	UsageLimit             int        `json:"usage_limit" validate:"min=0"`
	ExpiryDate             *time.Time `json:"expiry_date"`
	StoreLimited           bool       `json:"store_limited"`
	AllowedStoreIDs        []string   `json:"allowed_store_ids"`
	ItemCategoryLimited    bool       `json:"item_category_limited"`
	AllowedItemCategoryIDs []string   `json:"allowed_item_category_ids"`
}

// GiftCardBatchIssue mints a batch of cards sharing one template.
func GiftCardBatchIssue(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload giftCardBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := parseAmount(payload.InitialAmount, "initial_amount")
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

		batch, err := svc.IssueGiftCards(r.Context(), batches.IssueGiftCardsInput{
			CompanyID:              act.CompanyID,
			Count:                  payload.Count,
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
		responses.WriteSuccessStatus(w, http.StatusCreated, batchResponseFromModel(batch))
	}
}

type discountCodeBatchRequest struct {
	Count                  int        `json:"count" validate:"required,min=1"`
	DiscountType           string     `json:"discount_type" validate:"required"`
	Percentage             string     `json:"percentage"`
	ConstantDiscountAmount string     `json:"constant_discount_amount"`
	MaxDiscountAmount      string     `json:"max_discount_amount"`
	MinimumBillAmount      string     `json:"minimum_bill_amount"`
	UsageLimit             int        `json:"usage_limit" validate:"min=0"`
	ExpiryDate             *time.Time `json:"expiry_date"`
	StoreLimited           bool       `json:"store_limited"`
	AllowedStoreIDs        []string   `json:"allowed_store_ids"`
	ItemCategoryLimited    bool       `json:"item_category_limited"`
	AllowedItemCategoryIDs []string   `json:"allowed_item_category_ids"`
}

// DiscountCodeBatchIssue mints a batch of codes sharing one template.
func DiscountCodeBatchIssue(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountCodeBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type"))
			return
		}

		input := batches.IssueDiscountCodesInput{
			CompanyID:           act.CompanyID,
			Count:               payload.Count,
			DiscountType:        discountType,
			UsageLimit:          payload.UsageLimit,
			ExpiryDate:          payload.ExpiryDate,
			StoreLimited:        payload.StoreLimited,
			ItemCategoryLimited: payload.ItemCategoryLimited,
		}
		for _, field := range []struct {
			raw  string
			name string
			dest *decimal.Decimal
		}{
			{payload.Percentage, "percentage", &input.Percentage},
			{payload.ConstantDiscountAmount, "constant_discount_amount", &input.ConstantDiscountAmount},
			{payload.MaxDiscountAmount, "max_discount_amount", &input.MaxDiscountAmount},
			{payload.MinimumBillAmount, "minimum_bill_amount", &input.MinimumBillAmount},
		} {
			if field.raw == "" {
				continue
			}
			value, err := parseAmount(field.raw, field.name)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			*field.dest = value
		}
		input.AllowedStoreIDs, err = parseUUIDList(payload.AllowedStoreIDs, "allowed_store_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.AllowedItemCategoryIDs, err = parseUUIDList(payload.AllowedItemCategoryIDs, "allowed_item_category_ids")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.IssueDiscountCodes(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batchResponseFromModel(batch))
	}
}

// BatchDetail returns one batch owned by the acting company.
func BatchDetail(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := validators.ParsePathUUID(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.GetBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if batch.CompanyID != act.CompanyID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found"))
			return
		}
		responses.WriteSuccess(w, batchResponseFromModel(batch))
	}
}

// BatchList lists the acting company's batches, newest first.
func BatchList(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		act, err := actorFromRequest(r)
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

		rows, err := svc.ListBatches(r.Context(), act.CompanyID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		normalized := pagination.NormalizeLimit(limit)
		items := make([]batchResponse, 0, len(rows))
		for i, row := range rows {
			if i >= normalized {
				break
			}
			items = append(items, batchResponseFromModel(row))
		}
		payload := map[string]any{"items": items}
		if len(rows) > normalized {
			last := rows[normalized-1]
			payload["next_cursor"] = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		responses.WriteSuccess(w, payload)
	}
}

type batchResponse struct {
	ID             uuid.UUID            `json:"id"`
	CompanyID      uuid.UUID            `json:"company_id"`
	Kind           enums.InstrumentKind `json:"kind"`
	TotalCount     int                  `json:"total_count"`
	ProcessedCount int                  `json:"processed_count"`
	FailedCount    int                  `json:"failed_count"`
	Status         enums.BatchStatus    `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func batchResponseFromModel(m *models.Batch) batchResponse {
	return batchResponse{
		ID:             m.ID,
		CompanyID:      m.CompanyID,
		Kind:           m.Kind,
		TotalCount:     m.TotalCount,
		ProcessedCount: m.ProcessedCount,
		FailedCount:    m.FailedCount,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
