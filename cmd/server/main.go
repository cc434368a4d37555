// Package main runs the tradelens analysis HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradelens/config"
	"tradelens/internal/api"
	"tradelens/internal/app"
	"tradelens/observability"
	"tradelens/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLoggerFromConfig(cfg.Log.Format, cfg.Log.Level)
	observability.InitMetrics()

	if !cfg.HasDatabase() {
		observability.Fatal("DATABASE_URL is required: user credentials are read from the profile store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(ctx, cfg.Database.URL)
	if err != nil {
		observability.Fatal("failed to connect to database", "error", err)
	}
	observability.Info("connected to database")

	application, resultCache, err := app.Bootstrap(cfg, app.Infra{
		Repo:     repo,
		Store:    repo,
		Recorder: repo,
	})
	if err != nil {
		repo.Close()
		observability.Fatal("failed to initialize analysis stack", "error", err)
	}

	if cfg.Cache.SweepIntervalSeconds > 0 {
		resultCache.StartSweeper(ctx, time.Duration(cfg.Cache.SweepIntervalSeconds)*time.Second)
	}

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
	}

	go func() {
		observability.Info("starting server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	observability.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}
