// Gemini Chat - generative AI playground server
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

	"github.com/ferdianrazak/gemini-chat/internal/chat"
	"github.com/ferdianrazak/gemini-chat/internal/config"
	"github.com/ferdianrazak/gemini-chat/internal/gemini"
	"github.com/ferdianrazak/gemini-chat/internal/middleware"
	"github.com/ferdianrazak/gemini-chat/internal/prompt"
	"github.com/ferdianrazak/gemini-chat/internal/upload"
	"github.com/ferdianrazak/gemini-chat/web"
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

	slog.Info("Starting server", "port", cfg.Port, "static", !cfg.DisableStatic)

	// Initialize dependencies.
	staging, err := upload.NewStaging(cfg.UploadDir)
	if err != nil {
		slog.Error("Failed to prepare upload staging", "error", err)
		os.Exit(1)
	}

	var opts []gemini.Option
	if cfg.GeminiBaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.GeminiBaseURL))
	}
	client, err := gemini.NewClient(cfg.GeminiAPIKey, opts...)
	if err != nil {
		slog.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	chatHandler := chat.NewHandler(chat.NewService(client, cfg.Models.Text))
	promptHandler := prompt.NewHandler(client, client, cfg.Models, staging)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	chatHandler.RegisterRoutes(r)
	promptHandler.RegisterRoutes(r)

	// Serve the embedded client bundle (SPA catch-all) unless the deployment
	// fronts the app with a separate static host.
	if !cfg.DisableStatic {
		r.Handle("/*", web.SPAHandler())
	}

	// Provider calls can take a while; the write timeout must outlast the
	// client's 60s HTTP timeout plus response encoding.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
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
