package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mason-hale/giftledger-backend/internal/apiusers"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
)

type fakeVerifier struct {
	user   *models.APIUser
	secret string
}

func (f fakeVerifier) Provision(ctx context.Context, companyID uuid.UUID, name string) (*apiusers.Credentials, error) {
	panic("unimplemented")
}

func (f fakeVerifier) Verify(ctx context.Context, id uuid.UUID, secret string) (*models.APIUser, error) {
	if f.user == nil || id != f.user.ID || secret != f.secret {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return f.user, nil
}

func (f fakeVerifier) Deactivate(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func TestAPIKeyAuthRejectsMissingHeader(t *testing.T) {
	mw := APIKeyAuth(fakeVerifier{}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without credentials")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAPIKeyAuthRejectsMalformedToken(t *testing.T) {
	mw := APIKeyAuth(fakeVerifier{}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run with malformed credentials")
	})

	for _, header := range []string{
		"Bearer no-separator",
		"Bearer .secret-without-id",
		"Bearer not-a-uuid.secret",
		"Bearer " + uuid.NewString() + ".",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401 got %d", header, resp.Code)
		}
	}
}

func TestAPIKeyAuthRejectsBadSecret(t *testing.T) {
	user := &models.APIUser{ID: uuid.New(), CompanyID: uuid.New(), IsActive: true}
	mw := APIKeyAuth(fakeVerifier{user: user, secret: "right"}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run with a bad secret")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+user.ID.String()+".wrong")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAPIKeyAuthSeedsActingIdentity(t *testing.T) {
	user := &models.APIUser{ID: uuid.New(), CompanyID: uuid.New(), IsActive: true}
	mw := APIKeyAuth(fakeVerifier{user: user, secret: "right"}, nil)

	var gotUser, gotCompany string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = APIUserIDFromContext(r.Context())
		gotCompany = CompanyIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+user.ID.String()+".right")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotUser != user.ID.String() {
		t.Fatalf("expected api user %s in context got %s", user.ID, gotUser)
	}
	if gotCompany != user.CompanyID.String() {
		t.Fatalf("expected company %s in context got %s", user.CompanyID, gotCompany)
	}
}
