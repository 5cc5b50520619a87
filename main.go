package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mzbr/illustbox/internal/config"
	"github.com/mzbr/illustbox/internal/handler"
	"github.com/mzbr/illustbox/internal/report"
	"github.com/mzbr/illustbox/internal/repository/sqlite"
	"github.com/mzbr/illustbox/internal/service"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	reporter := report.New(logger)
	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost)
	collectionService := service.NewCollectionService(db.Users(), db.Illusts(), db.Stages())

	// Throttle credential guessing: bursts of 10 per IP, refilling one
	// attempt every two seconds.
	authLimiter := service.NewTokenBucket(0.5, 10)

	userHandler := handler.NewUserHandler(authService, collectionService, reporter, authLimiter, cfg.CookieSecure)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, userHandler, authService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
