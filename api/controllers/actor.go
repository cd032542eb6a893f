package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mason-hale/giftledger-backend/api/middleware"
	"github.com/mason-hale/giftledger-backend/internal/settlement"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
)

type actor struct {
	APIUserID uuid.UUID
	CompanyID uuid.UUID
}

func actorFromRequest(r *http.Request) (actor, error) {
	apiUserID, err := uuid.Parse(middleware.APIUserIDFromContext(r.Context()))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "api user context missing")
	}
	companyID, err := uuid.Parse(middleware.CompanyIDFromContext(r.Context()))
	if err != nil {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "company context missing")
	}
	return actor{APIUserID: apiUserID, CompanyID: companyID}, nil
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid uuid").WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}

func parseUUIDList(raw []string, field string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid uuid in list").WithDetails(map[string]any{"field": field})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string").WithDetails(map[string]any{"field": field})
	}
	return amount, nil
}

// settlementResponse is the wire shape every balance-moving operation
// returns, success or not.
type settlementResponse struct {
	Success       bool            `json:"success"`
	ErrorCode     int             `json:"error_code,omitempty"`
	ErrorName     string          `json:"error_name,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	Replayed      bool            `json:"replayed,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func settlementResponseFromResult(result *settlement.Result) settlementResponse {
	resp := settlementResponse{
		Success:      result.Success,
		ErrorMessage: result.ErrorMessage,
		Amount:       result.Amount,
		Balance:      result.Balance,
		Replayed:     result.Replayed,
		Timestamp:    time.Now().UTC(),
	}
	if result.ErrorCode != enums.ErrorCodeNone {
		resp.ErrorCode = int(result.ErrorCode)
		resp.ErrorName = result.ErrorCode.String()
	}
	if result.TransactionID != uuid.Nil {
		txnID := result.TransactionID
		resp.TransactionID = &txnID
	}
	return resp
}
