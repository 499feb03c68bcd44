package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"threadhub/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Init creates the database manager, runs migrations when configured, and
// waits for the database to become healthy before returning.
func Init(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	manager, err := NewManager(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	if cfg.Database.RunMigrations {
		migrationsPath := resolveMigrationsPath(cfg.Database.MigrationsPath)
		logger.Info("running migrations", zap.String("path", migrationsPath))
		if err := manager.Migrate(migrationsPath); err != nil {
			manager.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	if err := waitForHealth(manager, logger); err != nil {
		manager.Close()
		return nil, fmt.Errorf("database failed to become healthy: %w", err)
	}

	return manager, nil
}

// waitForHealth pings with exponential backoff until the pool answers.
func waitForHealth(manager *Manager, logger *zap.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := manager.Health(ctx); err != nil {
			logger.Warn("database health check failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	}, policy)
}

// resolveMigrationsPath falls back through common locations so the binary
// works both from the repo root and from a container workdir.
func resolveMigrationsPath(configured string) string {
	candidates := []string{configured, "migrations", "./migrations"}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err == nil {
				return abs
			}
			return candidate
		}
	}
	return configured
}
