package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mason-hale/giftledger-backend/internal/apiusers"
	"github.com/mason-hale/giftledger-backend/internal/batches"
	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/internal/reconciliation"
	"github.com/mason-hale/giftledger-backend/internal/settlement"
	"github.com/mason-hale/giftledger-backend/pkg/config"
	"github.com/mason-hale/giftledger-backend/pkg/db/models"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	pkgerrors "github.com/mason-hale/giftledger-backend/pkg/errors"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/pagination"
	"github.com/mason-hale/giftledger-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAPIUsersService struct {
	user *models.APIUser
}

func (s stubAPIUsersService) Provision(ctx context.Context, companyID uuid.UUID, name string) (*apiusers.Credentials, error) {
	return &apiusers.Credentials{
		User: &models.APIUser{
			ID:        uuid.New(),
			CompanyID: companyID,
			Name:      name,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		},
		APIKey: "glk_test",
	}, nil
}

func (s stubAPIUsersService) Verify(ctx context.Context, id uuid.UUID, secret string) (*models.APIUser, error) {
	if s.user == nil || id != s.user.ID || secret != "valid-secret" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return s.user, nil
}

func (s stubAPIUsersService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubInstrumentsService struct {
	card *models.GiftCard
}

func (s stubInstrumentsService) IssueGiftCard(ctx context.Context, input instruments.IssueGiftCardInput) (*models.GiftCard, error) {
	panic("unimplemented")
}

func (s stubInstrumentsService) IssueDiscountCode(ctx context.Context, input instruments.IssueDiscountCodeInput) (*models.DiscountCode, error) {
	panic("unimplemented")
}

func (s stubInstrumentsService) GetGiftCardBySerial(ctx context.Context, serial string) (*models.GiftCard, error) {
	if s.card != nil && s.card.SerialNumber == serial {
		return s.card, nil
	}
	return nil, pkgerrors.Domain(pkgerrors.CodeNotFound, enums.ErrorCodeGiftCardNotFound, "gift card not found")
}

func (s stubInstrumentsService) GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	return nil, pkgerrors.Domain(pkgerrors.CodeNotFound, enums.ErrorCodeDiscountCodeNotFound, "discount code not found")
}

func (s stubInstrumentsService) BlockGiftCard(ctx context.Context, serial string, by *uuid.UUID) (*models.GiftCard, error) {
	panic("unimplemented")
}

func (s stubInstrumentsService) UnblockGiftCard(ctx context.Context, serial string) (*models.GiftCard, error) {
	panic("unimplemented")
}

func (s stubInstrumentsService) BlockDiscountCode(ctx context.Context, code string, by *uuid.UUID) (*models.DiscountCode, error) {
	panic("unimplemented")
}

func (s stubInstrumentsService) UnblockDiscountCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	panic("unimplemented")
}

type stubSettlementService struct {
	debit func(ctx context.Context, input settlement.DebitGiftCardInput) (*settlement.Result, error)
}

func (s stubSettlementService) DebitGiftCard(ctx context.Context, input settlement.DebitGiftCardInput) (*settlement.Result, error) {
	if s.debit != nil {
		return s.debit(ctx, input)
	}
	return &settlement.Result{Success: true}, nil
}

func (s stubSettlementService) RedeemDiscountCode(ctx context.Context, input settlement.RedeemDiscountCodeInput) (*settlement.Result, error) {
	return &settlement.Result{Success: true}, nil
}

func (s stubSettlementService) SettleGiftCardDebit(ctx context.Context, input settlement.SettleInput, settleType enums.TransactionType) (*settlement.Result, error) {
	return &settlement.Result{Success: true}, nil
}

func (s stubSettlementService) SettleDiscountCodeRedemption(ctx context.Context, input settlement.SettleInput, settleType enums.TransactionType) (*settlement.Result, error) {
	return &settlement.Result{Success: true}, nil
}

type stubBatchesService struct{}

func (stubBatchesService) IssueGiftCards(ctx context.Context, input batches.IssueGiftCardsInput) (*models.Batch, error) {
	panic("unimplemented")
}

func (stubBatchesService) IssueDiscountCodes(ctx context.Context, input batches.IssueDiscountCodesInput) (*models.Batch, error) {
	panic("unimplemented")
}

func (stubBatchesService) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
}

func (stubBatchesService) ListBatches(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]*models.Batch, error) {
	return nil, nil
}

type stubReconciliationService struct{}

func (stubReconciliationService) RunCleansing(ctx context.Context) (*reconciliation.CleansingResult, error) {
	return &reconciliation.CleansingResult{Success: true}, nil
}

func (stubReconciliationService) GenerateReport(ctx context.Context) (*reconciliation.InconsistencyReport, error) {
	return &reconciliation.InconsistencyReport{}, nil
}

type stubLedger struct {
	kind enums.InstrumentKind
}

func (s stubLedger) WithTx(tx *gorm.DB) ledger.Repository {
	return s
}

func (s stubLedger) Kind() enums.InstrumentKind {
	return s.kind
}

func (s stubLedger) Create(ctx context.Context, entry *ledger.Entry) error {
	panic("unimplemented")
}

func (s stubLedger) FindByTransactionID(ctx context.Context, transactionID uuid.UUID, entryType enums.TransactionType) (*ledger.Entry, error) {
	panic("unimplemented")
}

func (s stubLedger) FindByClientTransactionID(ctx context.Context, clientTransactionID string, entryType enums.TransactionType, apiUserID uuid.UUID) (*ledger.Entry, error) {
	panic("unimplemented")
}

func (s stubLedger) MarkStatus(ctx context.Context, id uuid.UUID, to enums.TransactionStatus, now time.Time) (bool, error) {
	panic("unimplemented")
}

func (s stubLedger) FindSettlementsByOrigin(ctx context.Context, originTransactionID uuid.UUID) ([]ledger.Entry, error) {
	panic("unimplemented")
}

func (s stubLedger) FindPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType, limit int) ([]ledger.Entry, error) {
	panic("unimplemented")
}

func (s stubLedger) CountPendingWithSettlement(ctx context.Context, settlementType enums.TransactionType) (int64, error) {
	panic("unimplemented")
}

func (s stubLedger) FindOrphanedSettlements(ctx context.Context, limit int) ([]ledger.Entry, error) {
	panic("unimplemented")
}

func (s stubLedger) CountOrphanedSettlements(ctx context.Context) (int64, error) {
	panic("unimplemented")
}

func (s stubLedger) ListByInstrument(ctx context.Context, instrumentID uuid.UUID, params pagination.Params) ([]ledger.Entry, *pagination.Cursor, error) {
	return nil, nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func activeAPIUser() *models.APIUser {
	return &models.APIUser{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Name:      "integration",
		IsActive:  true,
	}
}

func newTestRouter(cfg *config.Config, user *models.APIUser, settlementSvc settlement.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if settlementSvc == nil {
		settlementSvc = stubSettlementService{}
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubAPIUsersService{user: user},
		stubInstrumentsService{},
		settlementSvc,
		stubBatchesService{},
		stubReconciliationService{},
		stubLedger{kind: enums.InstrumentKindGiftCard},
		stubLedger{kind: enums.InstrumentKindDiscountCode},
	)
}

func authHeader(user *models.APIUser) string {
	return "Bearer " + user.ID.String() + ".valid-secret"
}

func TestHealthLiveAlwaysUp(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPublicPingNeedsNoCredentials(t *testing.T) {
	router := newTestRouter(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingAPIKey(t *testing.T) {
	router := newTestRouter(testConfig(), activeAPIUser(), nil)
	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/ping"},
		{http.MethodPost, "/api/v1/gift-cards"},
		{http.MethodPost, "/api/v1/gift-cards/debit"},
		{http.MethodGet, "/api/v1/batches"},
	} {
		req := httptest.NewRequest(target.method, target.path, strings.NewReader("{}"))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without key got %d", target.method, target.path, resp.Code)
		}
	}
}

func TestPrivateGroupRejectsWrongSecret(t *testing.T) {
	user := activeAPIUser()
	router := newTestRouter(testConfig(), user, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+user.ID.String()+".wrong-secret")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret got %d", resp.Code)
	}
}

func TestPrivatePingSucceedsWithAPIKey(t *testing.T) {
	user := activeAPIUser()
	router := newTestRouter(testConfig(), user, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", authHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), user.CompanyID.String()) {
		t.Fatalf("expected private ping to echo the company id, body=%s", resp.Body.String())
	}
}

func TestGiftCardDebitRoutesToSettlement(t *testing.T) {
	user := activeAPIUser()
	var captured settlement.DebitGiftCardInput
	svc := stubSettlementService{
		debit: func(ctx context.Context, input settlement.DebitGiftCardInput) (*settlement.Result, error) {
			captured = input
			return &settlement.Result{
				Success:       true,
				TransactionID: uuid.New(),
				Amount:        decimal.NewFromInt(20),
				Balance:       decimal.NewFromInt(30),
			}, nil
		},
	}
	router := newTestRouter(testConfig(), user, svc)

	body := `{"serial_number":"CARD123","amount":"20","client_transaction_id":"order-77"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gift-cards/debit", strings.NewReader(body))
	req.Header.Set("Authorization", authHeader(user))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for debit got %d body=%s", resp.Code, resp.Body.String())
	}
	if captured.SerialNumber != "CARD123" || captured.ClientTransactionID != "order-77" {
		t.Fatalf("settlement service received wrong input: %+v", captured)
	}
	if captured.APIUserID != user.ID {
		t.Fatalf("expected acting api user %s got %s", user.ID, captured.APIUserID)
	}
	if !strings.Contains(resp.Body.String(), `"success":true`) {
		t.Fatalf("expected success envelope, body=%s", resp.Body.String())
	}
}

func TestSettleRoutesMapToTypes(t *testing.T) {
	user := activeAPIUser()
	router := newTestRouter(testConfig(), user, nil)
	txnID := uuid.NewString()
	for _, path := range []string{
		"/api/v1/gift-cards/debit/" + txnID + "/confirm",
		"/api/v1/gift-cards/debit/" + txnID + "/reverse",
		"/api/v1/gift-cards/debit/" + txnID + "/refund",
		"/api/v1/discount-codes/redeem/" + txnID + "/confirm",
		"/api/v1/discount-codes/redeem/" + txnID + "/reverse",
		"/api/v1/discount-codes/redeem/" + txnID + "/refund",
	} {
		body := `{"client_transaction_id":"settle-1"}`
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Authorization", authHeader(user))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d body=%s", path, resp.Code, resp.Body.String())
		}
	}
}

func TestProvisioningOnlyMountedOutsideProduction(t *testing.T) {
	body := `{"company_id":"` + uuid.NewString() + `","name":"staging key"}`

	devRouter := newTestRouter(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/api-users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	devRouter.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 outside production got %d body=%s", resp.Code, resp.Body.String())
	}

	prodCfg := testConfig()
	prodCfg.App.Env = "production"
	prodRouter := newTestRouter(prodCfg, nil, nil)
	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/api-users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	prodRouter.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected provisioning to be absent in production got %d", resp.Code)
	}
}

func TestReconciliationReportRoute(t *testing.T) {
	user := activeAPIUser()
	router := newTestRouter(testConfig(), user, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reconciliation/report", nil)
	req.Header.Set("Authorization", authHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for report got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "total_inconsistencies") {
		t.Fatalf("expected report payload, body=%s", resp.Body.String())
	}
}
