package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mason-hale/giftledger-backend/api/responses"
	"github.com/mason-hale/giftledger-backend/api/validators"
	"github.com/mason-hale/giftledger-backend/internal/apiusers"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

type apiUserProvisionRequest struct {
	CompanyID string `json:"company_id" validate:"required"`
	Name      string `json:"name" validate:"required,max=128"`
}

// APIUserProvision mints a merchant API identity and returns the secret
// once. Only mounted outside production; live provisioning goes through
// the ops tooling.
func APIUserProvision(svc apiusers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload apiUserProvisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		companyID, err := uuid.Parse(strings.TrimSpace(payload.CompanyID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid company_id"))
			return
		}

		creds, err := svc.Provision(r.Context(), companyID, payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, apiUserProvisionResponse{
			ID:        creds.User.ID,
			CompanyID: creds.User.CompanyID,
			Name:      creds.User.Name,
			APIKey:    creds.APIKey,
			CreatedAt: creds.User.CreatedAt,
		})
	}
}

type apiUserProvisionResponse struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	// APIKey is only returned here; the server stores a hash.
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}
