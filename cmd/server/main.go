package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prudhvinik1/pairup/internal/config"
	"github.com/prudhvinik1/pairup/internal/database"
	"github.com/prudhvinik1/pairup/internal/handlers"
	"github.com/prudhvinik1/pairup/internal/logging"
	"github.com/prudhvinik1/pairup/internal/metrics"
	"github.com/prudhvinik1/pairup/internal/notify"
	"github.com/prudhvinik1/pairup/internal/repositories"
	"github.com/prudhvinik1/pairup/internal/services"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open presence store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	// Push notifications are optional; clients keep polling either way
	var notifier notify.Notifier = notify.Noop{}
	if cfg.NATSURL != "" {
		nc, err := notify.Connect(cfg.NATSURL)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer nc.Drain()
		notifier = notify.NewNATSNotifier(nc)
		logger.Info("nats notifications enabled", zap.String("url", nc.ConnectedUrlRedacted()))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	matcher := services.NewMatchingService(store, cfg.MaxMatchRadiusKm, cfg.StaleThreshold)
	coordinator := services.NewSessionCoordinator(store, matcher, notifier, m, logger)

	reaper := coordinator.NewReaper(cfg.StaleThreshold, cfg.ReapInterval)
	go reaper.Run(ctx)

	// Start Server
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handlers.NewRouter(coordinator, registry, logger),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.StoreBackend),
		zap.Duration("stale_threshold", cfg.StaleThreshold),
		zap.Float64("max_radius_km", cfg.MaxMatchRadiusKm))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

// openStore connects the configured backend. The returned func releases its
// connections.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.PresenceStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewRedisPresenceStore(client), func() { client.Close() }, nil

	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewPostgresPresenceStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.BackendMemory:
		logger.Warn("using in-memory presence store; state is lost on restart")
		return repositories.NewMemoryPresenceStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
