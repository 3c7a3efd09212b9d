package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"produce-market/internal/config"
	"produce-market/internal/database"
	"produce-market/internal/delivery"
	"produce-market/internal/metrics"
	custommiddleware "produce-market/internal/middleware"
	"produce-market/internal/notify"
	"produce-market/internal/payment"
	"produce-market/internal/realtime"
	"produce-market/internal/repository"
	"produce-market/internal/service"
	"produce-market/internal/storage"
	"produce-market/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultStoreName      = "Produce Market"
	settingsLookupTimeout = 2 * time.Second
)

type Server struct {
	*http.Server
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	dispatcher *notify.Dispatcher
}

// NewServer wires repositories, services and handlers into one router.
// redisClient may be nil, or unreachable when redisUp is false; the
// geocode cache and the order event hub then run in process.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client, redisUp bool) (*Server, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cartRepo := repository.NewCartRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	preOrderRepo := repository.NewPreOrderRepository(db)
	bannerRepo := repository.NewBannerRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	// Infrastructure
	var (
		geoCache delivery.Cache = delivery.NewMemoryCache()
		hub      realtime.Hub   = realtime.NoopHub{}
	)
	if redisClient != nil && redisUp {
		geoCache = delivery.NewRedisCache(redisClient)
		hub = realtime.NewRedisHub(redisClient, logger)
	} else {
		logger.Warn("Redis unavailable, using in-process geocode cache and no order stream")
	}

	objectStore, err := newObjectStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.Email.APIKey != "" {
		sender = notify.NewHTTPSender(cfg.Email)
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Email.Workers, cfg.Email.QueueSize, m, logger)

	gateway := payment.NewClient(cfg.Payment)
	if !gateway.Enabled() {
		logger.Warn("Payment gateway credentials missing, online payment disabled")
	}

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret,
		service.WithTokenExpiry(
			time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
			time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
		),
	)
	settingsService := service.NewSettingsService(settingsRepo)

	estimator, err := delivery.NewEstimator(
		delivery.NewHTTPGeocoder(cfg.Geocoder),
		geoCache,
		settingsService,
		delivery.Options{
			Country:  cfg.Geocoder.Country,
			Pattern:  cfg.Geocoder.PostalCodePattern,
			CacheTTL: cfg.Geocoder.CacheTTL,
		},
		m,
		logger,
	)
	if err != nil {
		dispatcher.Close(ctx)
		return nil, fmt.Errorf("failed to create delivery estimator: %w", err)
	}

	notifier := notify.NewNotifier(dispatcher, func() string {
		ctx, cancel := context.WithTimeout(context.Background(), settingsLookupTimeout)
		defer cancel()
		return storeName(ctx, settingsService, logger)
	}, cfg.Email.AdminEmail, logger)

	catalogService := service.NewCatalogService(productRepo, categoryRepo)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	addressService := service.NewAddressService(addressRepo, estimator)
	orderService := service.NewOrderService(service.OrderDeps{
		Orders:    orderRepo,
		Cart:      cartRepo,
		Products:  productRepo,
		Addresses: addressRepo,
		Users:     userRepo,
		Settings:  settingsService,
		Delivery:  estimator,
		Gateway:   gateway,
		Notifier:  notifier,
		Events:    hub,
		Metrics:   m,
		Logger:    logger,
	})
	preOrderService := service.NewPreOrderService(preOrderRepo, productRepo, settingsService, estimator, gateway, notifier, logger)
	webhookService := service.NewPaymentWebhookService(gateway, orderService, preOrderService, logger)
	bannerService := service.NewBannerService(bannerRepo)
	activityService := service.NewActivityService(activityRepo, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, activityRepo, settingsService)
	customerService := service.NewCustomerService(customerRepo)
	imageService := service.NewImageService(objectStore, cfg.Storage.PresignTTL)

	// Initialize handlers
	accountHandler := transport.NewAccountHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(catalogService, activityService, logger)
	storefrontHandler := transport.NewStorefrontHandler(bannerService, settingsService, estimator, activityService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	addressHandler := transport.NewAddressHandler(addressService, logger)
	orderHandler := transport.NewOrderHandler(orderService, realtime.NewStreamHandler(hub, logger), activityService, logger)
	preOrderHandler := transport.NewPreOrderHandler(preOrderService, activityService, logger)
	webhookHandler := transport.NewWebhookHandler(webhookService, logger)
	bannerHandler := transport.NewBannerHandler(bannerService, activityService, logger)
	settingsHandler := transport.NewSettingsHandler(settingsService, activityService, logger)
	imageHandler := transport.NewImageHandler(imageService, logger)
	analyticsHandler := transport.NewAnalyticsHandler(analyticsService, customerService, activityService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuth(cfg.JWT.Secret, logger)
	limit := func(prefix string, requests int) func(http.Handler) http.Handler {
		return custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit:" + prefix,
		}, logger)
	}
	if redisClient == nil || !redisUp {
		limit = func(string, int) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		}
	}
	writeBudget := max(cfg.RateLimit.Requests/6, 1)

	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware(m))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))

	dbService := database.NewFromDB(db)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		dbHealth := dbService.Health()
		health := map[string]any{"status": "ok", "database": dbHealth}
		status := http.StatusOK
		if dbHealth["status"] != "up" {
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})
	if m != nil {
		router.Handle("/metrics", m.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		accountHandler.RegisterRoutes(r, authMiddleware, limit("auth", writeBudget))
		catalogHandler.RegisterRoutes(r)
		storefrontHandler.RegisterRoutes(r, optionalAuth, limit("visit", cfg.RateLimit.Requests))
		preOrderHandler.RegisterRoutes(r, optionalAuth, authMiddleware, limit("preorder", writeBudget))
		webhookHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			cartHandler.RegisterRoutes(r)
			addressHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r, limit("checkout", writeBudget))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(custommiddleware.RequireAdmin(logger))
			catalogHandler.RegisterAdminRoutes(r)
			bannerHandler.RegisterAdminRoutes(r)
			settingsHandler.RegisterAdminRoutes(r)
			imageHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
			preOrderHandler.RegisterAdminRoutes(r)
			analyticsHandler.RegisterAdminRoutes(r)
		})
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		dispatcher: dispatcher,
	}

	return server, nil
}

func newObjectStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.ObjectStorage, error) {
	if cfg.Storage.Bucket == "" {
		baseURL := cfg.Storage.PublicBaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%s/uploads", cfg.Server.Port)
		}
		logger.Warn("Object storage not configured, image uploads use stub URLs", zap.String("base_url", baseURL))
		return storage.NewStubStorage(baseURL), nil
	}
	store, err := storage.NewS3Storage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage: %w", err)
	}
	return store, nil
}

// storeName reads the configured store name for email subjects, falling
// back to a default before settings are saved.
func storeName(ctx context.Context, settings service.SettingsService, logger *zap.Logger) string {
	current, err := settings.Current(ctx)
	if err != nil {
		logger.Warn("Could not load settings for store name", zap.Error(err))
		return defaultStoreName
	}
	if current.StoreName == "" {
		return defaultStoreName
	}
	return current.StoreName
}

// Close drains queued email, then releases the redis client and the
// database pool. Call it after Shutdown.
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.dispatcher.Close(ctx); err != nil {
		s.logger.Warn("Email queue not fully drained", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
