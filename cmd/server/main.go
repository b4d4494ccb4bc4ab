package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gridline/design-review-service/internal/auth"
	"github.com/gridline/design-review-service/internal/cache"
	"github.com/gridline/design-review-service/internal/config"
	"github.com/gridline/design-review-service/internal/reasoning"
	"github.com/gridline/design-review-service/internal/repository"
	"github.com/gridline/design-review-service/internal/services"
	"github.com/gridline/design-review-service/internal/store"
	"github.com/gridline/design-review-service/pkg/server"
)

func main() {
	var envFile = flag.String("env", "", "Optional .env file to load")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize database
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Log startup event
	db.Event("info", "startup", "Server starting", map[string]interface{}{
		"service_name": cfg.ServiceName,
		"http_addr":    cfg.HTTPAddr,
		"db_path":      cfg.DBPath,
	})

	// Initialize repository
	repo := repository.NewSQLiteRepository(db)

	// Initialize reasoning engine. A missing API key is tolerated here
	// and reported on the first review attempt instead.
	engine, err := reasoning.NewGeminiEngine(context.Background(), cfg.GeminiAPIKey, cfg.ReviewModel)
	if err != nil {
		db.Event("error", "engine.failed", "Reasoning engine initialization failed", map[string]interface{}{
			"model": cfg.ReviewModel,
			"error": err.Error(),
		})
		slog.Error("Failed to create reasoning engine", "error", err)
		os.Exit(1)
	}
	db.Event("info", "engine.init", "Reasoning engine initialized", map[string]interface{}{
		"model": cfg.ReviewModel,
	})

	// Initialize services
	memo := cache.New(cfg.CacheMaxEntries)
	validationService := services.NewValidationService(engine, repo, memo, cfg)

	db.Event("info", "services.init", "Initializing services", map[string]interface{}{
		"http_addr": cfg.HTTPAddr,
		"nats_url":  cfg.NatsURL,
	})

	// Initialize NATS service
	natsService, err := services.NewNATSService(cfg, validationService)
	if err != nil {
		db.Event("error", "nats.failed", "NATS service initialization failed", map[string]interface{}{
			"nats_url": cfg.NatsURL,
			"error":    err.Error(),
		})
		slog.Error("Failed to create NATS service", "error", err)
		os.Exit(1)
	}

	// Initialize Health service for service discovery
	healthService := services.NewHealthService(natsService.GetConnection(), cfg, validationService)

	// Start HTTP server
	verifier := auth.NewVerifier(cfg.AuthTokens)
	httpServer := server.NewServer(cfg.HTTPAddr, validationService, verifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Log server ready
	db.Event("info", "server.ready", "Server ready to accept requests", map[string]interface{}{
		"http_addr":    cfg.HTTPAddr,
		"service_name": cfg.ServiceName,
		"nats_url":     cfg.NatsURL,
	})

	// Start all services
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			db.Event("error", "http.failed", "HTTP server failed", map[string]interface{}{
				"error": err.Error(),
			})
			slog.Error("HTTP server failed", "error", err)
		}
	}()

	go func() {
		if err := natsService.Start(ctx); err != nil {
			db.Event("error", "nats.failed", "NATS service failed", map[string]interface{}{
				"error": err.Error(),
			})
			slog.Error("NATS service failed", "error", err)
		}
	}()

	go func() {
		if err := healthService.Start(ctx); err != nil {
			db.Event("error", "health.failed", "Health service failed", map[string]interface{}{
				"error": err.Error(),
			})
			slog.Error("Health service failed", "error", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("Shutting down server")
}
