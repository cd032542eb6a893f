package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mason-hale/giftledger-backend/api/controllers"
	"github.com/mason-hale/giftledger-backend/api/middleware"
	"github.com/mason-hale/giftledger-backend/internal/apiusers"
	"github.com/mason-hale/giftledger-backend/internal/batches"
	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/internal/reconciliation"
	"github.com/mason-hale/giftledger-backend/internal/settlement"
	"github.com/mason-hale/giftledger-backend/pkg/config"
	"github.com/mason-hale/giftledger-backend/pkg/db"
	"github.com/mason-hale/giftledger-backend/pkg/enums"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	apiUsersService apiusers.Service,
	instrumentsService instruments.Service,
	settlementService settlement.Service,
	batchesService batches.Service,
	reconciliationService reconciliation.Service,
	giftCardLedger ledger.Repository,
	discountCodeLedger ledger.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Provisioning is mounted outside production only; live credentials are
	// issued through the ops tooling.
	if !cfg.App.IsProd() {
		r.Post("/api/admin/v1/api-users", controllers.APIUserProvision(apiUsersService, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiUsersService, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/gift-cards", func(r chi.Router) {
			r.Post("/", controllers.GiftCardIssue(instrumentsService, logg))
			r.Post("/batch", controllers.GiftCardBatchIssue(batchesService, logg))
			r.Post("/debit", controllers.GiftCardDebit(settlementService, logg))
			r.Route("/debit/{transactionId}", func(r chi.Router) {
				r.Post("/confirm", controllers.GiftCardSettle(settlementService, enums.TransactionTypeConfirmation, logg))
				r.Post("/reverse", controllers.GiftCardSettle(settlementService, enums.TransactionTypeReversal, logg))
				r.Post("/refund", controllers.GiftCardSettle(settlementService, enums.TransactionTypeRefund, logg))
			})
			r.Route("/{serial}", func(r chi.Router) {
				r.Get("/", controllers.GiftCardDetail(instrumentsService, logg))
				r.Get("/transactions", controllers.GiftCardTransactions(instrumentsService, giftCardLedger, logg))
				r.Post("/block", controllers.GiftCardBlock(instrumentsService, logg))
				r.Post("/unblock", controllers.GiftCardUnblock(instrumentsService, logg))
			})
		})

		r.Route("/discount-codes", func(r chi.Router) {
			r.Post("/", controllers.DiscountCodeIssue(instrumentsService, logg))
			r.Post("/batch", controllers.DiscountCodeBatchIssue(batchesService, logg))
			r.Post("/redeem", controllers.DiscountCodeRedeem(settlementService, logg))
			r.Route("/redeem/{transactionId}", func(r chi.Router) {
				r.Post("/confirm", controllers.DiscountCodeSettle(settlementService, enums.TransactionTypeConfirmation, logg))
				r.Post("/reverse", controllers.DiscountCodeSettle(settlementService, enums.TransactionTypeReversal, logg))
				r.Post("/refund", controllers.DiscountCodeSettle(settlementService, enums.TransactionTypeRefund, logg))
			})
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", controllers.DiscountCodeDetail(instrumentsService, logg))
				r.Get("/transactions", controllers.DiscountCodeTransactions(instrumentsService, discountCodeLedger, logg))
				r.Post("/block", controllers.DiscountCodeBlock(instrumentsService, logg))
				r.Post("/unblock", controllers.DiscountCodeUnblock(instrumentsService, logg))
			})
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", controllers.BatchList(batchesService, logg))
			r.Get("/{batchId}", controllers.BatchDetail(batchesService, logg))
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.Post("/run", controllers.ReconciliationRun(reconciliationService, logg))
			r.Get("/report", controllers.ReconciliationReport(reconciliationService, logg))
		})
	})

	return r
}
