package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sebagarciam/servipay/internal/adapters/handler"
	"github.com/sebagarciam/servipay/internal/adapters/provider"
	"github.com/sebagarciam/servipay/internal/adapters/store/postgres"
	redisstore "github.com/sebagarciam/servipay/internal/adapters/store/redis"
	"github.com/sebagarciam/servipay/internal/config"
	"github.com/sebagarciam/servipay/internal/core/ports"
	"github.com/sebagarciam/servipay/internal/core/service"
	"github.com/sebagarciam/servipay/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting servipay",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
		"session_store", cfg.Sessions.Store,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	cardStore := postgres.NewCardStore(db)
	paymentStore := postgres.NewPaymentStore(db)

	var sessionStore ports.SessionStore
	if cfg.Sessions.Store == "redis" {
		client, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		sessionStore = redisstore.NewSessionStore(client)
	} else {
		sessionStore = postgres.NewSessionStore(db)
	}

	registry := provider.NewRegistry(cfg.Providers, cfg.Sessions, logger)

	tokenizationService := service.NewTokenizationService(registry, cardStore, sessionStore, logger)
	paymentService := service.NewPaymentService(registry, cardStore, sessionStore, paymentStore, logger)
	webhookService := service.NewWebhookService(registry, paymentStore, logger)

	h := handler.NewHandler(tokenizationService, paymentService, webhookService, registry, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	httpHandler := handler.Recovery(logger)(mux)
	httpHandler = handler.Logging(logger)(httpHandler)
	httpHandler = handler.Timeout(cfg.Server.ReadTimeout)(httpHandler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		registry,
		paymentStore,
		cfg.Worker.Interval,
		cfg.Worker.StuckFor,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
