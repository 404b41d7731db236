package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/supplyhub/marketplace-backend/api/controllers"
	"github.com/supplyhub/marketplace-backend/api/routes"
	"github.com/supplyhub/marketplace-backend/internal/auth"
	"github.com/supplyhub/marketplace-backend/internal/catalog"
	"github.com/supplyhub/marketplace-backend/internal/contacts"
	"github.com/supplyhub/marketplace-backend/internal/notifications"
	"github.com/supplyhub/marketplace-backend/internal/orders"
	"github.com/supplyhub/marketplace-backend/internal/shops"
	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
	"github.com/supplyhub/marketplace-backend/pkg/migrate"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	logg = logger.FromConfig("api", cfg.App)

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": ":" + cfg.App.Port,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case serveErr := <-errCh:
		return serveErr
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogRepo := catalog.NewRepository(conn)
	listingCache := catalog.NewListingCache(redisClient, cfg.Import.ListingCacheTTL, logg)
	catalogSvc, err := catalog.NewService(catalogRepo, listingCache)
	if err != nil {
		return routes.Dependencies{}, err
	}
	importer, err := catalog.NewImporter(catalog.ImporterParams{
		Repo:    catalogRepo,
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Cache:   listingCache,
		Metrics: metrics.NewImportMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, outboxSvc, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	contactsSvc, err := contacts.NewService(contacts.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}
	shopsSvc, err := shops.NewService(shops.NewRepository(conn), listingCache, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	userRepo := users.NewRepository(conn)
	usersSvc, err := users.NewService(userRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Outbox:         outboxSvc,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Store:         redisClient,
		HTTPMetrics:   metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Auth:          authSvc,
		Register:      registerSvc,
		Users:         usersSvc,
		Contacts:      contactsSvc,
		Catalog:       catalogSvc,
		Importer:      importer,
		Shops:         shopsSvc,
		Orders:        ordersSvc,
		Notifications: notificationsSvc,
	}, nil
}
