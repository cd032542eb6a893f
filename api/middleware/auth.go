package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mason-hale/giftledger-backend/api/responses"
	"github.com/mason-hale/giftledger-backend/internal/apiusers"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
)

// APIKeyAuth validates the merchant key and seeds the request context with
// the acting identity. Credentials arrive as "Authorization: Bearer <api
// user id>.<secret>".
func APIKeyAuth(verifier apiusers.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			idPart, secret, found := strings.Cut(token, ".")
			if !found || idPart == "" || secret == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed credentials"))
				return
			}

			apiUserID, err := uuid.Parse(idPart)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed credentials"))
				return
			}

			user, err := verifier.Verify(r.Context(), apiUserID, secret)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithAPIUserID(r.Context(), user.ID.String())
			ctx = WithCompanyID(ctx, user.CompanyID.String())

			if logg != nil {
				ctx = logg.WithAPIUserID(ctx, user.ID.String())
				ctx = logg.WithCompanyID(ctx, user.CompanyID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
