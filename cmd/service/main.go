// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"ghost-vault/internal/api"
	"ghost-vault/internal/catalog"
	"ghost-vault/internal/config"
	"ghost-vault/internal/database"
	"ghost-vault/internal/github"
	"ghost-vault/internal/interest"
	"ghost-vault/internal/narrative"
	"ghost-vault/internal/notify"
	"ghost-vault/internal/syncer"
	"ghost-vault/internal/vitality"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully",
		"narrative_enabled", cfg.NarrativeEnabled(), "email_enabled", cfg.EmailEnabled())

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.MigrationsURL, cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	scorer, err := vitality.NewScorer(cfg.Weights, time.Now)
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}
	classifier := vitality.NewClassifier(cfg.ActiveThreshold, time.Now)

	var generator narrative.Generator
	if cfg.NarrativeEnabled() {
		generator = narrative.NewGemini(narrative.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
	}
	advisor := narrative.NewAdvisor(generator, cfg.NarrativeTimeout, logger.With("component", "narrative"))

	dispatcher := notify.NewDispatcher(logger.With("component", "notify"))
	if cfg.EmailEnabled() {
		dispatcher.Register(notify.NewEmailJS(notify.EmailJSConfig{
			URL:        cfg.EmailJSURL,
			ServiceID:  cfg.EmailJSServiceID,
			TemplateID: cfg.EmailJSTemplateID,
			PublicKey:  cfg.EmailJSPublicKey,
		}))
	}

	store := database.NewStore(dbpool, logger.With("component", "store"))
	feed := interest.NewFeed()
	workflow := interest.NewWorkflow(store, feed, dispatcher, logger.With("component", "interest"))

	ghClient := github.NewClient(cfg.GithubToken, logger.With("component", "github"))
	cat := catalog.New(ghClient, scorer, classifier, advisor, store, logger.With("component", "catalog"))

	appSyncer := syncer.NewSyncer(cat, logger.With("component", "syncer"), cfg.SyncInterval)
	listener := database.NewListener(dbpool, feed, logger.With("component", "listener"))

	// 6. Start background workers
	go appSyncer.Start(ctx)
	go listener.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(cat, workflow, logger.With("component", "api")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 7. Wait for shutdown signal
	logger.Info("Application started. Waiting for shutdown signal...")
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	dispatcher.Wait()
	logger.Info("Shutdown complete")

	return nil
}

func runMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
