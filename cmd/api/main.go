package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AmielDylan/sendbox-sub002/api/routes"
	"github.com/AmielDylan/sendbox-sub002/internal/accounts"
	"github.com/AmielDylan/sendbox-sub002/internal/admin"
	"github.com/AmielDylan/sendbox-sub002/internal/audit"
	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/capture"
	"github.com/AmielDylan/sendbox-sub002/internal/disputes"
	"github.com/AmielDylan/sendbox-sub002/internal/financials"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/internal/notify"
	"github.com/AmielDylan/sendbox-sub002/internal/payout"
	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	"github.com/AmielDylan/sendbox-sub002/internal/users"
	"github.com/AmielDylan/sendbox-sub002/pkg/config"
	"github.com/AmielDylan/sendbox-sub002/pkg/db"
	"github.com/AmielDylan/sendbox-sub002/pkg/fedapay"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
	"github.com/AmielDylan/sendbox-sub002/pkg/metrics"
	"github.com/AmielDylan/sendbox-sub002/pkg/migrate"
	"github.com/AmielDylan/sendbox-sub002/pkg/pubsub"
	"github.com/AmielDylan/sendbox-sub002/pkg/redis"
	pkgstripe "github.com/AmielDylan/sendbox-sub002/pkg/stripe"
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

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	stripeOps := pkgstripe.NewOperations(stripeClient)

	fedapayClient, err := fedapay.NewClient(ctx, cfg.FedaPay, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap fedapay", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		notifier, err = notify.NewPubSubNotifier(pubsubClient.NotificationPublisher(), logg)
		if err != nil {
			logg.Error(ctx, "failed to create notifier", err)
			os.Exit(1)
		}
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	bookingsRepo := bookings.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	accountsRepo := accounts.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	disputesRepo := disputes.NewRepository(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB())

	bankRail, err := payout.NewBankRail(stripeOps)
	if err != nil {
		logg.Error(ctx, "failed to create bank rail", err)
		os.Exit(1)
	}
	walletRail, err := payout.NewWalletRail(fedapayClient)
	if err != nil {
		logg.Error(ctx, "failed to create wallet rail", err)
		os.Exit(1)
	}
	rails, err := payout.NewRegistry(bankRail, walletRail)
	if err != nil {
		logg.Error(ctx, "failed to create rail registry", err)
		os.Exit(1)
	}

	captureService, err := capture.NewService(capture.ServiceParams{
		Tx:       dbClient,
		Bookings: bookingsRepo,
		Ledger:   ledgerRepo,
		Identity: usersRepo,
		Payments: stripeOps,
		Metrics:  settlementMetrics,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create capture service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Bookings: bookingsRepo,
		Ledger:   ledgerRepo,
		Accounts: accountsRepo,
		Rails:    rails,
		Wallet:   fedapayClient,
		Metrics:  settlementMetrics,
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settlement service", err)
		os.Exit(1)
	}

	financialsService, err := financials.NewService(financials.ServiceParams{
		Bookings: bookingsRepo,
		Ledger:   ledgerRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create financials service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Tx:         dbClient,
		Bookings:   bookingsRepo,
		Ledger:     ledgerRepo,
		Disputes:   disputesRepo,
		Audit:      auditRepo,
		Settlement: settlementService,
		Payments:   stripeOps,
		Notifier:   notifier,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create admin service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			captureService, settlementService, financialsService, adminService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
