package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/supplyhub/marketplace-backend/internal/cron"
	"github.com/supplyhub/marketplace-backend/internal/notifications"
	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single maintenance cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName
	logg = logger.FromConfig(serviceName, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
		"interval":    cfg.Cron.Interval.String(),
	})

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "maintenance worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	service, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}
	if once {
		logg.Info(ctx, "running one maintenance cycle")
		return service.RunOnce(ctx)
	}
	logg.Info(ctx, "starting maintenance worker")
	return service.Run(ctx)
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.NotificationRetention,
		BatchSize:  cfg.Cron.CleanupBatchSize,
	})
	if err != nil {
		return nil, err
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:              logg,
		DB:                  dbClient,
		Repository:          outbox.NewRepository(dbClient.DB()),
		Retention:           cfg.Cron.OutboxRetention,
		DeadLetters:         outbox.NewDeadLetterRepository(dbClient.DB()),
		DeadLetterRetention: cfg.Cron.DeadLetterRetention,
	})
	if err != nil {
		return nil, err
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName, env), 0)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Jobs:       []cron.Job{notificationJob, outboxJob},
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
}
