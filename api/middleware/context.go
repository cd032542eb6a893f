package middleware

import "context"

type contextKey string

const (
	ctxAPIUserID contextKey = "api_user_id"
	ctxCompanyID contextKey = "company_id"
)

func APIUserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAPIUserID).(string); ok {
		return v
	}
	return ""
}

func CompanyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCompanyID).(string); ok {
		return v
	}
	return ""
}

// WithAPIUserID injects the acting API user into the context.
func WithAPIUserID(ctx context.Context, apiUserID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAPIUserID, apiUserID)
}

// WithCompanyID injects the owning company into the context for downstream handlers.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCompanyID, companyID)
}
