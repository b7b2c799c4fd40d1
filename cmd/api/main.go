package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aryasetiadi/lokapasar-backend/api/routes"
	checkoutsvc "github.com/aryasetiadi/lokapasar-backend/internal/checkout"
	"github.com/aryasetiadi/lokapasar-backend/internal/couriers"
	"github.com/aryasetiadi/lokapasar-backend/internal/dispatch"
	"github.com/aryasetiadi/lokapasar-backend/internal/notifications"
	"github.com/aryasetiadi/lokapasar-backend/internal/orders"
	"github.com/aryasetiadi/lokapasar-backend/internal/tariffs"
	"github.com/aryasetiadi/lokapasar-backend/internal/wallet"
	"github.com/aryasetiadi/lokapasar-backend/pkg/config"
	"github.com/aryasetiadi/lokapasar-backend/pkg/db"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
	"github.com/aryasetiadi/lokapasar-backend/pkg/metrics"
	"github.com/aryasetiadi/lokapasar-backend/pkg/migrate"
	"github.com/aryasetiadi/lokapasar-backend/pkg/outbox"
	"github.com/aryasetiadi/lokapasar-backend/pkg/redis"
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

	svcs, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	gormDB := dbClient.DB()

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	walletSvc, err := wallet.NewService(wallet.NewRepository(gormDB), dbClient, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	withdrawalSvc, err := wallet.NewWithdrawalService(wallet.NewRepository(gormDB), walletSvc, dbClient, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	tariffSvc, err := tariffs.NewService(tariffs.NewRepository(gormDB), logg)
	if err != nil {
		return routes.Services{}, err
	}
	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, walletSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	checkoutSvc, err := checkoutsvc.NewService(tariffSvc, walletSvc, ordersRepo, dbClient, outboxSvc, cfg.Checkout, logg)
	if err != nil {
		return routes.Services{}, err
	}
	courierSvc, err := couriers.NewService(couriers.NewRepository(gormDB), redisClient, cfg.Dispatch, logg)
	if err != nil {
		return routes.Services{}, err
	}
	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	dispatchSvc, err := dispatch.NewService(dispatch.NewRepository(gormDB), courierSvc, dbClient, outboxSvc, redisClient, dispatchMetrics, cfg.Dispatch, logg)
	if err != nil {
		return routes.Services{}, err
	}
	notificationSvc, err := notifications.NewService(notifications.NewRepository(gormDB), logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Checkout:      checkoutSvc,
		Orders:        ordersSvc,
		Dispatch:      dispatchSvc,
		Couriers:      courierSvc,
		Wallet:        walletSvc,
		Withdrawals:   withdrawalSvc,
		Tariffs:       tariffSvc,
		Notifications: notificationSvc,
	}, nil
}
