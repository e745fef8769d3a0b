package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/numbering"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	logging.SetLevel(cfg.LogLevel)

	logger := logging.NewLoggerV2("billing-service")

	logging.Infof("Starting billing-service on port %d", cfg.Server.Port)

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer db.Close()

	redisClient := repository.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	allocator := numbering.NewAllocator(newSequenceStore(cfg, db, redisClient, logger))

	eventPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	defer eventPublisher.Close()

	documentService := service.NewDocumentService(
		repository.NewPostgresDocumentRepository(db, logger),
		repository.NewPostgresCustomerRepository(db, logger),
		repository.NewPostgresSettingsRepository(db),
		repository.NewRedisDocumentCache(redisClient, cfg.Redis.TTL),
		allocator,
		eventPublisher,
		clients.NewHTTPNotificationClient(cfg.NotificationService, logger),
		m,
		cfg,
	)

	checks := map[string]handlers.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}

	h := handlers.NewHandlers(documentService, checks, cfg)
	authClient := clients.NewHTTPAuthClient(cfg.AuthService, logger)

	srv := server.New(h, authClient, registry, cfg)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":              cfg.Server.Port,
			"sequence_backend":  cfg.Numbering.Backend,
			"enable_caching":    cfg.Features.EnableDocumentCaching,
			"enable_doc_events": cfg.Features.EnableDocumentEvents,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func newSequenceStore(cfg *config.Config, db *sql.DB, redisClient *redis.Client, logger *logging.LoggerV2) numbering.SequenceStore {
	switch cfg.Numbering.Backend {
	case config.SequenceBackendRedis:
		// Redis counters are only as durable as the Redis persistence setup.
		logger.Warn("Using Redis sequence backend", logging.Fields{"redis_host": cfg.Redis.Host})
		return repository.NewRedisSequenceStore(redisClient, logger)
	default:
		return repository.NewPostgresSequenceStore(db, logger)
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logging.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
