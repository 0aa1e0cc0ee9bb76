package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AmielDylan/sendbox-sub002/internal/accounts"
	"github.com/AmielDylan/sendbox-sub002/internal/bookings"
	"github.com/AmielDylan/sendbox-sub002/internal/capture"
	"github.com/AmielDylan/sendbox-sub002/internal/ledger"
	"github.com/AmielDylan/sendbox-sub002/internal/notify"
	"github.com/AmielDylan/sendbox-sub002/internal/payout"
	"github.com/AmielDylan/sendbox-sub002/internal/settlement"
	"github.com/AmielDylan/sendbox-sub002/internal/users"
	"github.com/AmielDylan/sendbox-sub002/internal/worker"
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

const lockKeyFormat = "sb:settlement-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
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
	jobMetrics := metrics.NewWorkerJobMetrics(prometheus.DefaultRegisterer)

	bookingsRepo := bookings.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	accountsRepo := accounts.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

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

	autoReleaseJob, err := worker.NewAutoReleaseJob(worker.AutoReleaseJobParams{
		Logger:     logg,
		Bookings:   bookingsRepo,
		Settlement: settlementService,
		Delay:      cfg.Settlement.AutoReleaseDelay,
		BatchSize:  cfg.Settlement.WorkerBatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auto-release job", err)
		os.Exit(1)
	}

	holdReconcileJob, err := worker.NewHoldReconcileJob(worker.HoldReconcileJobParams{
		Logger:    logg,
		Ledger:    ledgerRepo,
		Capture:   captureService,
		BatchSize: cfg.Settlement.WorkerBatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create hold-reconcile job", err)
		os.Exit(1)
	}

	transferReconcileJob, err := worker.NewTransferReconcileJob(worker.TransferReconcileJobParams{
		Logger:     logg,
		Ledger:     ledgerRepo,
		Settlement: settlementService,
		BatchSize:  cfg.Settlement.WorkerBatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create transfer-reconcile job", err)
		os.Exit(1)
	}

	lock, err := worker.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Settlement.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := worker.NewService(worker.ServiceParams{
		Logger:   logg,
		Registry: worker.NewRegistry(autoReleaseJob, holdReconcileJob, transferReconcileJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Settlement.WorkerInterval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settlement worker", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Settlement.WorkerInterval.String(),
	})
	logg.Info(runCtx, "starting settlement worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "settlement worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
