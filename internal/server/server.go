package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/config"
	custommiddleware "github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
	"github.com/khanofemperia/gethsemane-sub001/internal/transport"
)

// Deps is everything the API needs from the outside world. Redis and
// Uploader are optional.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Repos    Repositories
	Redis    *redis.Client
	Sessions auth.SessionManager
	Payments service.PaymentProvider
	Notifier service.OrderNotifier
	Uploader transport.ImageUploader
	// Health reports store status for /health; nil means always up
	Health func() map[string]string
	// Closers are released in order by Close
	Closers []io.Closer
	// Tracing wraps the router with otelhttp
	Tracing bool
}

// Services are the use cases built over Deps.Repos
type Services struct {
	Carts       service.CartService
	Products    service.ProductService
	Upsells     service.UpsellService
	Collections service.CollectionService
	Categories  service.CategoryService
	Checkout    service.CheckoutService
}

// NewServices builds every use case over one store driver
func NewServices(d Deps, invalidator cache.Invalidator) Services {
	carts := service.NewCartService(d.Repos.Carts, d.Repos.Products, d.Repos.Upsells, invalidator, d.Logger)
	return Services{
		Carts:       carts,
		Products:    service.NewProductService(d.Repos.Products, d.Repos.Upsells, d.Repos.Collections, invalidator, d.Logger),
		Upsells:     service.NewUpsellService(d.Repos.Upsells, d.Repos.Products, invalidator, d.Logger),
		Collections: service.NewCollectionService(d.Repos.Collections, d.Repos.Products, invalidator, d.Logger),
		Categories:  service.NewCategoryService(d.Repos.Categories, invalidator, d.Logger),
		Checkout: service.NewCheckoutService(carts, d.Repos.Orders, d.Payments, d.Notifier, invalidator,
			d.Config.PayPal.Currency, d.Logger),
	}
}

type Server struct {
	*http.Server
	Services Services
	logger   *zap.Logger
	closers  []io.Closer
}

func NewServer(d Deps) *Server {
	cfg, logger := d.Config, d.Logger

	var (
		invalidator cache.Invalidator = cache.Noop{}
		pageCache                     = func(next http.Handler) http.Handler { return next }
		limit                         = func(next http.Handler) http.Handler { return next }
	)
	if d.Redis != nil {
		pages := cache.NewPageCache(d.Redis, cfg.Redis.PageTTL)
		invalidator = pages
		pageCache = custommiddleware.PageCacheMiddleware(pages, logger)
		limit = custommiddleware.RateLimitMiddleware(d.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit",
		}, logger)
	}

	services := NewServices(d, invalidator)

	cookies := transport.CookieConfig{
		CartName:      cfg.Cart.CookieName,
		CartMaxAge:    time.Duration(cfg.Cart.CookieMaxAge) * 24 * time.Hour,
		SessionName:   cfg.Session.CookieName,
		SessionMaxAge: time.Duration(cfg.Session.ExpiryDays) * 24 * time.Hour,
		Secure:        !cfg.Server.IsDevelopment(),
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.SessionMiddleware(d.Sessions, cfg.Session.CookieName, logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))

	router.Get("/health", healthHandler(d.Health))

	transport.NewCatalogHandler(services.Products, services.Upsells, services.Collections, services.Categories, logger).
		RegisterRoutes(router, pageCache)
	transport.NewCartHandler(services.Carts, services.Checkout, cookies, logger).
		RegisterRoutes(router, limit)
	transport.NewAuthHandler(d.Sessions, cookies, logger).
		RegisterRoutes(router, limit)
	transport.NewAdminHandler(transport.AdminServices{
		Products:    services.Products,
		Upsells:     services.Upsells,
		Collections: services.Collections,
		Categories:  services.Categories,
		Orders:      services.Checkout,
	}, d.Uploader, logger).RegisterRoutes(router, custommiddleware.RequireAdmin(logger))

	var handler http.Handler = router
	if d.Tracing {
		handler = otelhttp.NewHandler(router, "storefront-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      handler,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Services: services,
		logger:   logger,
		closers:  d.Closers,
	}
}

func healthHandler(health func() map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "up"}
		if health != nil {
			status = health()
		}
		code := http.StatusOK
		if status["status"] != "up" {
			code = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, code, status)
	}
}

// Close releases the store, cache and provider clients
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
