package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/supplyhub/marketplace-backend/api/controllers"
	"github.com/supplyhub/marketplace-backend/api/middleware"
	"github.com/supplyhub/marketplace-backend/internal/auth"
	"github.com/supplyhub/marketplace-backend/internal/catalog"
	"github.com/supplyhub/marketplace-backend/internal/contacts"
	"github.com/supplyhub/marketplace-backend/internal/notifications"
	"github.com/supplyhub/marketplace-backend/internal/orders"
	"github.com/supplyhub/marketplace-backend/internal/shops"
	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
)

// Store is the redis surface the HTTP layer needs: rate-limit counters and
// idempotent response replay.
type Store interface {
	middleware.ReplayStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies collects everything the router hands to controllers.
type Dependencies struct {
	Pingers       map[string]controllers.Pinger
	Store         Store
	HTTPMetrics   *metrics.HTTPMetrics
	MetricsHandle http.Handler

	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Contacts      contacts.Service
	Catalog       catalog.Service
	Importer      catalog.Importer
	Shops         shops.Service
	Orders        orders.Service
	Notifications notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	login := middleware.RateLimit(middleware.LoginRule(cfg.AuthRateLimit), deps.Store, logg)
	register := middleware.RateLimit(middleware.RegisterRule(cfg.AuthRateLimit), deps.Store, logg)
	idempotent := middleware.Idempotency(deps.Store, cfg.HTTP.IdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	metricsHandler := deps.MetricsHandle
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(login).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(register, idempotent).
			Post("/register", controllers.AuthRegister(deps.Register, logg))
	})

	r.Get("/api/v1/shops", controllers.CatalogShops(deps.Catalog, logg))
	r.Get("/api/v1/categories", controllers.CatalogCategories(deps.Catalog, logg))
	r.Get("/api/v1/products", controllers.CatalogProducts(deps.Catalog, logg))
	r.Get("/api/v1/listings", controllers.CatalogListings(deps.Catalog, logg))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/api/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.UserMe(deps.Users, logg))
			r.Patch("/me", controllers.UserUpdateMe(deps.Users, logg))
		})

		r.Route("/api/v1/contacts", func(r chi.Router) {
			r.Get("/", controllers.ContactList(deps.Contacts, logg))
			r.Post("/", controllers.ContactCreate(deps.Contacts, logg))
			r.Patch("/{contactId}", controllers.ContactUpdate(deps.Contacts, logg))
			r.Delete("/{contactId}", controllers.ContactDelete(deps.Contacts, logg))
		})

		r.Route("/api/v1/basket", func(r chi.Router) {
			r.Get("/", controllers.BasketFetch(deps.Orders, logg))
			r.Post("/", controllers.BasketAdd(deps.Orders, logg))
			r.Put("/", controllers.BasketUpdate(deps.Orders, logg))
			r.Delete("/", controllers.BasketRemove(deps.Orders, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.With(idempotent).Post("/", controllers.OrderPlace(deps.Orders, logg))
		})

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/api/v1/partner", func(r chi.Router) {
			r.Use(middleware.RequireUserType(enums.UserTypeShop, logg))
			r.With(idempotent).Post("/update", controllers.PartnerImport(deps.Importer, cfg.Import.MaxUploadBytes(), logg))
			r.Get("/shops", controllers.PartnerShops(deps.Shops, logg))
			r.Patch("/shops/{shopId}/status", controllers.PartnerShopStatus(deps.Shops, logg))
			r.Get("/shops/{shopId}/orders", controllers.PartnerShopOrders(deps.Orders, logg))
		})
	})

	return r
}
