package controllers

import (
	"net/http"

	"github.com/mason-hale/giftledger-backend/api/responses"
	"github.com/mason-hale/giftledger-backend/internal/reconciliation"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

// ReconciliationRun triggers one cleansing pass on demand. The cron worker
// runs the same pass on a schedule; this endpoint exists for operators.
func ReconciliationRun(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}
		result, err := svc.RunCleansing(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cleansing run failed"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReconciliationReport returns inconsistency counts without repairing.
func ReconciliationReport(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}
		report, err := svc.GenerateReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "report generation failed"))
			return
		}
		responses.WriteSuccess(w, report)
	}
}
