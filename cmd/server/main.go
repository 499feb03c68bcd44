package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"threadhub/internal/cache"
	"threadhub/internal/config"
	"threadhub/internal/database"
	"threadhub/internal/events"
	"threadhub/internal/router"
	"threadhub/internal/services"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting comment engine",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	db, err := database.Init(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	cacheService, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer cacheService.Close()

	eventBus := events.NewInMemoryEventBus(events.DefaultConfig(), logger)
	if err := eventBus.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	collection, err := services.NewCollection(db, cacheService, eventBus, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	handler := router.New(&router.Dependencies{
		Config:   cfg,
		Services: collection,
		DB:       db,
		Cache:    cacheService,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	// Stop accepting connections first, then tear down subscriptions and
	// drain the event bus.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	collection.Threads.Close()
	if err := eventBus.Stop(shutdownCtx); err != nil {
		logger.Error("event bus shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
