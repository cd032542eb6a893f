package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mason-hale/giftledger-backend/api/routes"
	"github.com/mason-hale/giftledger-backend/internal/apiusers"
	"github.com/mason-hale/giftledger-backend/internal/batches"
	"github.com/mason-hale/giftledger-backend/internal/instruments"
	"github.com/mason-hale/giftledger-backend/internal/ledger"
	"github.com/mason-hale/giftledger-backend/internal/reconciliation"
	"github.com/mason-hale/giftledger-backend/internal/settlement"
	"github.com/mason-hale/giftledger-backend/pkg/config"
	"github.com/mason-hale/giftledger-backend/pkg/db"
	"github.com/mason-hale/giftledger-backend/pkg/logger"
	"github.com/mason-hale/giftledger-backend/pkg/migrate"
	"github.com/mason-hale/giftledger-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	giftCardRepo := instruments.NewGiftCardRepository(dbClient.DB())
	discountCodeRepo := instruments.NewDiscountCodeRepository(dbClient.DB())
	giftCardLedger := ledger.NewGiftCardLedger(dbClient.DB())
	discountCodeLedger := ledger.NewDiscountCodeLedger(dbClient.DB())

	apiUsersService, err := apiusers.NewService(apiusers.NewRepository(dbClient.DB()), cfg.APIKey)
	if err != nil {
		logg.Error(context.Background(), "failed to create api users service", err)
		os.Exit(1)
	}

	instrumentsService, err := instruments.NewService(giftCardRepo, discountCodeRepo, cfg.Batch.SerialLength)
	if err != nil {
		logg.Error(context.Background(), "failed to create instruments service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(dbClient, giftCardRepo, discountCodeRepo, giftCardLedger, discountCodeLedger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	batchesService, err := batches.NewService(batches.ServiceParams{
		Client:        dbClient,
		Batches:       batches.NewRepository(dbClient.DB()),
		GiftCards:     giftCardRepo,
		DiscountCodes: discountCodeRepo,
		MaxCount:      cfg.Batch.MaxCount,
		SerialLength:  cfg.Batch.SerialLength,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create batches service", err)
		os.Exit(1)
	}

	reconciliationService, err := reconciliation.NewService(
		[]ledger.Repository{giftCardLedger, discountCodeLedger},
		cfg.Reconciliation.BatchLimit,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			apiUsersService,
			instrumentsService,
			settlementService,
			batchesService,
			reconciliationService,
			giftCardLedger,
			discountCodeLedger,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
