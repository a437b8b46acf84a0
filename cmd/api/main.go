package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/promotion-service/internal/config"
	"github.com/fairyhunter13/promotion-service/internal/events"
	"github.com/fairyhunter13/promotion-service/internal/handler"
	"github.com/fairyhunter13/promotion-service/internal/metrics"
	"github.com/fairyhunter13/promotion-service/internal/repository"
	"github.com/fairyhunter13/promotion-service/internal/service"
	pvalidator "github.com/fairyhunter13/promotion-service/internal/validator"
	"github.com/fairyhunter13/promotion-service/pkg/database"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Promotion store
	var (
		repo   service.PromotionRepositoryInterface
		pinger handler.Pinger
		pool   *pgxpool.Pool
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory promotion store; data is lost on restart")
		repo = repository.NewMemoryRepository()
		pinger = handler.PingerFunc(func(context.Context) error { return nil })
	default:
		pool, err = database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		if cfg.DB.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("failed to apply database schema")
			}
		}
		repo = repository.NewPromotionRepository(pool)
		pinger = pool
	}

	opts := []service.Option{}

	var producer *events.KafkaProducer
	if cfg.Kafka.Enabled() {
		producer = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		opts = append(opts, service.WithPublisher(producer))
		log.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("publishing promotion events")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, service.WithRecorder(m))
	}

	app := fiber.New(fiber.Config{
		AppName:      "Promotion Service",
		ErrorHandler: handler.ErrorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())
	if m != nil {
		app.Use(m.Middleware())
		app.Get("/metrics", m.Handler())
	}

	promotionService := service.NewPromotionService(repo, opts...)
	promotionHandler := handler.NewPromotionHandler(promotionService, pvalidator.New())

	app.Get("/", handler.NewIndexHandler(version).Index)
	app.Get("/health", handler.NewHealthHandler(pinger).Check)
	promotionHandler.Register(app)

	// Start server with graceful shutdown
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("storage", cfg.Storage.Driver).
			Str("version", version).
			Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close dependencies AFTER server shutdown (even if shutdown timed out)
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event producer")
		}
	}
	if pool != nil {
		log.Info().Msg("closing database connections...")
		pool.Close()
	}
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
