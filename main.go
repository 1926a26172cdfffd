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

	"expensetracker/pkg/config"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", logging.FieldError, err)
		os.Exit(1)
	}
	if cfg.UsesDevSecret() {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	// `expense-tracker migrate` migrates the schema and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := migrate(cfg, logger); err != nil {
			logger.Error("migration failed", logging.FieldError, err)
			os.Exit(1)
		}
		fmt.Println("migration completed")
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", logging.FieldError, err)
		os.Exit(1)
	}
}

func migrate(cfg *config.Config, logger *slog.Logger) error {
	if cfg.DataBackend != config.BackendPostgres {
		return fmt.Errorf("migrate requires DATA_BACKEND=%s", config.BackendPostgres)
	}
	db, err := store.Open(cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return store.Migrate(db, logger)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	r := gin.New()
	setupRoutes(r, a)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
