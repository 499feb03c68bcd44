// Package router wires middleware, controllers, and routes.
package router

import (
	"context"
	"net/http"
	"time"

	"threadhub/internal/cache"
	"threadhub/internal/config"
	"threadhub/internal/database"
	"threadhub/internal/handlers/api/v1/comments"
	"threadhub/internal/handlers/api/v1/notifications"
	"threadhub/internal/handlers/api/v1/threads"
	"threadhub/internal/middleware"
	"threadhub/internal/response"
	"threadhub/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	Config   *config.Config
	Services *services.Collection
	DB       *database.Manager
	Cache    cache.Cache
	Logger   *zap.Logger
}

// New builds the HTTP handler tree.
func New(deps *Dependencies) http.Handler {
	builder := response.NewBuilder(deps.Logger, deps.Config.Server.Environment == "production")

	commentController := comments.NewController(deps.Services, builder, deps.Logger)
	threadController := threads.NewController(deps.Services, builder, deps.Logger)
	notificationController := notifications.NewController(deps.Services, builder, deps.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger, builder))
	r.Use(middleware.StructuredLogger(deps.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Compress(5))

	r.Get("/healthz", healthHandler(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(&deps.Config.Auth, builder, deps.Logger))

		r.Route("/comments", func(r chi.Router) {
			r.Post("/", commentController.Create)
			r.Get("/{commentID}", commentController.Get)
			r.Put("/{commentID}", commentController.Update)
			r.Delete("/{commentID}", commentController.Delete)
			r.Post("/{commentID}/like", commentController.Like)
			r.Delete("/{commentID}/like", commentController.Unlike)
		})

		r.Route("/posts/{postID}/thread", func(r chi.Router) {
			r.Get("/", threadController.Get)
			r.Get("/subscribe", threadController.Subscribe)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationController.List)
			r.Get("/unread-count", notificationController.UnreadCount)
			r.Post("/read-all", notificationController.MarkAllRead)
			r.Post("/{notificationID}/read", notificationController.MarkRead)
		})
	})

	return r
}

// healthHandler reports liveness of the store and cache.
func healthHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		body := `{"status":"ok"}`

		if err := deps.DB.Health(ctx); err != nil {
			deps.Logger.Warn("database health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			body = `{"status":"degraded","component":"database"}`
		} else if err := deps.Cache.Health(ctx); err != nil {
			deps.Logger.Warn("cache health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			body = `{"status":"degraded","component":"cache"}`
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}
