package server

import (
	"fmt"
	"net/http"
	"time"

	"tienda-api/internal/cache"
	"tienda-api/internal/config"
	"tienda-api/internal/database"
	custommiddleware "tienda-api/internal/middleware"
	"tienda-api/internal/repository"
	"tienda-api/internal/service"
	"tienda-api/internal/storage"
	"tienda-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const catalogCacheTTL = 5 * time.Minute

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))

	// Redis backs the catalog cache and rate limiting; both are optional
	// and skipped when no Redis host is configured. The rate limiter is
	// middleware, so it must be installed before the first route.
	var redisClient *redis.Client
	var catalogCache service.CatalogCache
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		catalogCache = cache.NewCatalog(redisClient, catalogCacheTTL, logger)

		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: 300,
			Window:            time.Minute,
			KeyPrefix:         "rate_limit",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, db.Health(r.Context()))
	})

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())

	// Initialize image storage
	imageStore, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}

	// Initialize services
	catalogService := service.NewCatalogService(productRepo, categoryRepo, catalogCache, logger)
	checkoutService := service.NewCheckoutService(productRepo, cfg.WhatsApp, logger)
	uploadService := service.NewUploadService(imageStore, cfg.Upload, logger)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, cfg.WhatsApp, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)
	uploadHandler := transport.NewUploadHandler(uploadService, cfg.Upload, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router)
	checkoutHandler.RegisterRoutes(router)
	uploadHandler.RegisterRoutes(router)

	// Serve uploaded images from the local store
	fileServer := http.StripPrefix(cfg.Upload.BaseURL+"/", http.FileServer(http.Dir(imageStore.Dir())))
	router.Get(cfg.Upload.BaseURL+"/*", fileServer.ServeHTTP)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
