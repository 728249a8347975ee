// Thrive - Self-Regulated Learning Coach Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/thrivelabs/thrive/internal/ai"
	"github.com/thrivelabs/thrive/internal/api"
	"github.com/thrivelabs/thrive/internal/config"
	"github.com/thrivelabs/thrive/internal/events"
	"github.com/thrivelabs/thrive/internal/identity"
	"github.com/thrivelabs/thrive/internal/middleware"
	"github.com/thrivelabs/thrive/internal/session"
	"github.com/thrivelabs/thrive/internal/store"
	"github.com/thrivelabs/thrive/internal/uploads"
	"github.com/thrivelabs/thrive/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	files := uploads.NewStore()

	// Wire the AI gateway (optional: without an API key the coach replies
	// with a local echo and suggestions are unavailable).
	var gateway ai.Gateway = ai.Disabled{}
	if cfg.AIEnabled() {
		gateway = ai.NewGeminiGateway(ai.GeminiOptions{
			APIKey:        cfg.AI.APIKey,
			Model:         cfg.AI.Model,
			IdentityPath:  cfg.AI.IdentityPath,
			Temperature:   float32(cfg.AI.Temperature),
			MaxTokens:     int32(cfg.AI.MaxTokens),
			HistoryWindow: cfg.AI.HistoryWindow,
			RateLimit:     cfg.AI.RateLimit,
		})
		slog.Info("AI gateway enabled", "model", cfg.AI.Model)
	} else {
		slog.Info("AI features disabled (GEMINI_API_KEY not set)")
	}

	// Initialize services.
	hub := events.NewHub()
	svc := session.NewService(repo, files, gateway, session.Options{
		SnapshotCap: cfg.SnapshotCap,
		Notifier:    hub,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(svc, repo)
	sessionHandler := api.NewSessionHandler(baseHandler)
	resourceHandler := api.NewResourceHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := events.NewHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware (no auth needed).
	sessionHandler.RegisterRoutes(r)
	resourceHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,                 // 0 = no timeout, websocket connections are long-lived
		IdleTimeout:  120 * time.Second, // 2 minutes for idle connections
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
