// Tienda - catalog admin server with an AI category assistant
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

	"github.com/dromero/tienda-server/internal/api"
	"github.com/dromero/tienda-server/internal/chat"
	"github.com/dromero/tienda-server/internal/classifier"
	"github.com/dromero/tienda-server/internal/config"
	"github.com/dromero/tienda-server/internal/identity"
	"github.com/dromero/tienda-server/internal/middleware"
	"github.com/dromero/tienda-server/internal/store"
	"github.com/dromero/tienda-server/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	// Initialize handlers.
	catalogHandler := api.NewHandler(repo)

	// Chat assistant (only if a classifier API key is configured).
	var chatHandler *chat.Handler
	var chatWS *chat.WebSocketHandler
	if cfg.AIEnabled() {
		gemini, err := classifier.NewGeminiClient(cfg.Classifier)
		if err != nil {
			slog.Error("Failed to initialize intent classifier", "error", err)
			os.Exit(1)
		}

		audit, err := chat.NewAuditLogger(cfg.ConversationLog, logger)
		if err != nil {
			slog.Error("Failed to initialize conversation audit logger", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := audit.Close(); closeErr != nil {
				slog.Error("Failed to close audit logger", "error", closeErr)
			}
		}()

		chatService := chat.NewService(repo, gemini, chat.NewSessionManager(), chat.NewBroker(), audit)
		chatHandler = chat.NewHandler(chatService, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
		chatWS = chat.NewWebSocketHandler(chatService, cfg.FrontendURL, cfg.IsDevelopment())
		slog.Info("Chat assistant enabled", "model", cfg.Classifier.Model)
	} else {
		slog.Info("Chat assistant disabled (GOOGLE_AI_API_KEY not set)")
	}

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

	catalogHandler.RegisterRoutes(r)

	if chatHandler != nil {
		chatHandler.RegisterRoutes(r)
		r.Get("/ws/chat", chatWS.ServeHTTP)
	}

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout so websocket subscriptions stay open
		IdleTimeout:  120 * time.Second,
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
