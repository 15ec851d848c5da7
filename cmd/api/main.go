package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/showlinehq/showline-backend/api/routes"
	"github.com/showlinehq/showline-backend/internal/batches"
	checkoutsvc "github.com/showlinehq/showline-backend/internal/checkout"
	"github.com/showlinehq/showline-backend/internal/notifications"
	"github.com/showlinehq/showline-backend/internal/orders"
	"github.com/showlinehq/showline-backend/internal/products"
	"github.com/showlinehq/showline-backend/internal/refunds"
	"github.com/showlinehq/showline-backend/internal/sellers"
	stripewebhook "github.com/showlinehq/showline-backend/internal/webhooks/stripe"
	"github.com/showlinehq/showline-backend/pkg/config"
	"github.com/showlinehq/showline-backend/pkg/db"
	"github.com/showlinehq/showline-backend/pkg/logger"
	"github.com/showlinehq/showline-backend/pkg/migrate"
	"github.com/showlinehq/showline-backend/pkg/pubsub"
	"github.com/showlinehq/showline-backend/pkg/redis"
	"github.com/showlinehq/showline-backend/pkg/stripe"
)

const (
	webhookEventTTL = 24 * time.Hour
	shutdownGrace   = 15 * time.Second
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(dbClient.DB())
	checkoutRepo := checkoutsvc.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	batchesRepo := batches.NewRepository(dbClient.DB())
	sellersRepo := sellers.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	batchesService, err := batches.NewService(batches.ServiceParams{Repo: batchesRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create batch service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:      ordersRepo,
		Batches:   batchesService,
		GraceDays: cfg.Sweep.GraceDays,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	sellersService, err := sellers.NewService(sellers.ServiceParams{
		Repo:   sellersRepo,
		Stripe: sellers.NewStripeClient(stripeClient),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sellers service", err)
		os.Exit(1)
	}

	notificationsParams := notifications.ServiceParams{
		Repo:   notificationsRepo,
		Logger: logg,
	}
	if cfg.GCP.ProjectID != "" {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		notificationsParams.Publisher = notifications.NewGCPPublisher(psClient.NotificationPublisher())
	}

	notificationsService, err := notifications.NewService(notificationsParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Repo:              checkoutRepo,
		Products:          productsRepo,
		Sellers:           sellersRepo,
		Orders:            ordersRepo,
		Batches:           batchesService,
		Stripe:            checkoutsvc.NewStripeClient(stripeClient),
		TransactionRunner: dbClient,
		Config:            cfg.Checkout,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	refundsService, err := refunds.NewService(refunds.ServiceParams{
		Orders:  ordersRepo,
		Sellers: sellersRepo,
		Batches: batchesService,
		Stripe:  refunds.NewStripeClient(stripeClient),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookEventTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:        ordersService,
		OrdersRepo:    ordersRepo,
		Intents:       checkoutRepo,
		Sellers:       sellersService,
		Batches:       batchesService,
		Notifications: notificationsService,
		Guard:         webhookGuard,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
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
			checkoutService,
			ordersService,
			refundsService,
			batchesService,
			sellersService,
			notificationsService,
			stripeClient,
			webhookService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
