package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/queueup/backend/internal/adapters/cache"
	"github.com/queueup/backend/internal/adapters/database"
	"github.com/queueup/backend/internal/adapters/events"
	"github.com/queueup/backend/internal/api/handlers"
	"github.com/queueup/backend/internal/api/middleware"
	"github.com/queueup/backend/internal/api/routes"
	"github.com/queueup/backend/internal/application/services"
	"github.com/queueup/backend/internal/domain/providers"
	"github.com/queueup/backend/internal/infrastructure/clients/postgres"
	"github.com/queueup/backend/internal/infrastructure/clients/redis"
	"github.com/queueup/backend/internal/infrastructure/observability"
	"github.com/queueup/backend/pkg/config"
	"github.com/queueup/backend/pkg/encoding"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	logger := observability.GetLogger()

	if cfg.Encoding.DefaultKey {
		logger.Warn().Msg("ENCODING_KEY not set, using development key; external ids are predictable")
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	logger.Info().Msg("PostgreSQL client initialized")

	// Initialize Redis client. The service runs without it: no response
	// cache and no queue events, but admission still works.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Redis client, continuing without cache and events")
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info().Msg("Redis client initialized")
	}

	// Initialize adapters
	ticketAdapter := database.NewTicketAdapter(pgClient, metrics)
	shopAdapter := database.NewShopAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		defer eventBus.Close()
		logger.Info().Msg("Queue event bus initialized")
	}

	codec := encoding.NewCodec(cfg.Encoding.Key)

	// Initialize services
	ticketService := services.NewTicketService(ticketAdapter, shopAdapter, eventBus, cfg.Ticket.ValidityHorizon)
	admissionService := services.NewAdmissionService(ticketAdapter, eventBus, metrics)
	queueService := services.NewQueueService(ticketAdapter, shopAdapter)

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(ticketService, queueService, codec)
	staffHandler := handlers.NewStaffHandler(admissionService, ticketService, queueService, codec)
	shopHandler := handlers.NewShopHandler(queueService, codec)

	var streamHandler *handlers.EventStreamHandler
	if eventBus != nil {
		streamHandler = handlers.NewEventStreamHandler(eventBus, codec)
		logger.Info().Msg("Queue event stream enabled")
	}

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
		logger.Info().Msg("Cache middleware initialized")
	}

	// Set up router
	router := routes.NewRouter(
		ticketHandler,
		staffHandler,
		shopHandler,
		streamHandler,
		cacheMiddleware,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
