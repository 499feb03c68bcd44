package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"threadhub/internal/database"
	"threadhub/internal/models"

	"go.uber.org/zap"
)

// BaseRepository provides the database plumbing shared by all
// repositories.
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// ===============================
// CORE DATABASE OPERATIONS
// ===============================

// ExecContext executes a statement through the managed pool.
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns a single row.
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

// ===============================
// TRANSACTION HELPERS
// ===============================

// WithTransaction runs fn inside a transaction, rolling back on error or
// panic.
func (r *BaseRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("failed to rollback transaction",
				zap.NamedError("rollback_error", rbErr),
				zap.Error(err),
			)
		}
		return err
	}

	return tx.Commit()
}

// ===============================
// PAGINATION HELPERS
// ===============================

// BuildPaginationMeta creates pagination metadata for a page of results.
// params must already be normalized; a zero limit would divide by zero.
func BuildPaginationMeta(params models.PaginationParams, total int64) models.PaginationMeta {
	currentPage := (params.Offset / params.Limit) + 1
	totalPages := int((total + int64(params.Limit) - 1) / int64(params.Limit))

	return models.PaginationMeta{
		CurrentPage:  currentPage,
		ItemsPerPage: params.Limit,
		TotalItems:   int(total),
		TotalPages:   totalPages,
		HasNext:      int64(params.Offset+params.Limit) < total,
		HasPrev:      params.Offset > 0,
	}
}

// ===============================
// UTILITY METHODS
// ===============================

// IsNotFound checks whether err is a missing-row error, wrapped or not.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
