// WorksheetBot - worksheet generator and chat assistant server
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
	"github.com/redis/go-redis/v9"

	"github.com/gpotter/worksheetbot/internal/api"
	"github.com/gpotter/worksheetbot/internal/assistant"
	"github.com/gpotter/worksheetbot/internal/config"
	"github.com/gpotter/worksheetbot/internal/history"
	"github.com/gpotter/worksheetbot/internal/llm"
	"github.com/gpotter/worksheetbot/internal/lookup"
	"github.com/gpotter/worksheetbot/internal/mail"
	"github.com/gpotter/worksheetbot/internal/middleware"
	"github.com/gpotter/worksheetbot/internal/render"
	"github.com/gpotter/worksheetbot/internal/session"
	"github.com/gpotter/worksheetbot/internal/store"
	"github.com/gpotter/worksheetbot/web"
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

	// Worksheet index.
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

	// Session history backend.
	backend, err := newHistoryBackend(cfg.History)
	if err != nil {
		slog.Error("Failed to initialize history backend", "error", err)
		os.Exit(1)
	}
	histStore := history.NewStore(backend)
	defer func() {
		if closeErr := histStore.Close(); closeErr != nil {
			slog.Error("Failed to close history store", "error", closeErr)
		}
	}()
	slog.Info("History backend ready", "backend", cfg.History.Backend)

	// Renderers.
	htmlRenderer, err := render.NewHTML(cfg.OutputDir)
	if err != nil {
		slog.Error("Failed to initialize HTML renderer", "error", err)
		os.Exit(1)
	}
	pdfRenderer, err := render.NewPDF(cfg.OutputDir)
	if err != nil {
		slog.Error("Failed to initialize PDF renderer", "error", err)
		os.Exit(1)
	}

	// Completion client.
	completer := llm.NewClient(cfg.Completion, logger)

	// Optional collaborators.
	var searcher lookup.Searcher
	if cfg.Lookup.Enabled {
		searcher = lookup.NewClient(cfg.Lookup.BaseURL)
		slog.Info("Scores lookup enabled")
	}

	var mailer mail.Sender
	if cfg.MailEnabled() {
		mailer = mail.NewSMTPSender(cfg.Mail)
		slog.Info("Mail delivery enabled", "recipients", len(cfg.Mail.Recipients))
	} else {
		slog.Info("Mail delivery disabled")
	}

	transcript, err := assistant.NewTranscriptLogger(cfg.Transcript, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcript.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	svc, err := assistant.NewService(assistant.Deps{
		History:       histStore,
		Completer:     completer,
		Searcher:      searcher,
		HTML:          htmlRenderer,
		PDF:           pdfRenderer,
		Repo:          repo,
		Mailer:        mailer,
		Transcript:    transcript,
		WorksheetLink: cfg.WorksheetLink,
		Logger:        logger,
	})
	if err != nil {
		slog.Error("Failed to initialize assistant service", "error", err)
		os.Exit(1)
	}

	// Handlers.
	baseHandler := api.NewHandler(svc, repo)
	worksheetHandler := api.NewWorksheetHandler(baseHandler)
	chatHandler := api.NewChatHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := api.NewWebSocketHandler(svc, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(session.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	worksheetHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Streaming chat keeps connections open, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

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

// newHistoryBackend builds the configured history driver.
func newHistoryBackend(cfg config.HistoryConfig) (history.Backend, error) {
	switch history.BackendType(cfg.Backend) {
	case history.BackendTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		return history.NewBackend(history.BackendTypeRedis, history.WithRedisClient(client))
	case history.BackendTypeMemory:
		return history.NewBackend(history.BackendTypeMemory)
	default:
		return history.NewBackend(history.BackendTypeFile, history.WithDir(cfg.Dir))
	}
}
