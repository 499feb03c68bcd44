package services

import (
	"threadhub/internal/cache"
	"threadhub/internal/config"
	"threadhub/internal/database"
	"threadhub/internal/events"
	"threadhub/internal/repositories"

	"go.uber.org/zap"
)

// Collection bundles the engine's services for handler wiring.
type Collection struct {
	Comments      CommentService
	Notifications NotificationService
	Threads       ThreadService
}

// NewCollection builds the repositories and services in dependency order.
func NewCollection(
	db *database.Manager,
	cacheService cache.Cache,
	eventBus events.EventBus,
	cfg *config.Config,
	logger *zap.Logger,
) (*Collection, error) {
	commentRepo := repositories.NewCommentRepository(db, &cfg.Features, logger)
	postRepo := repositories.NewPostRepository(db, logger)
	userRepo := repositories.NewUserRepository(db, logger)
	notificationRepo := repositories.NewNotificationRepository(db, logger)

	notifications := NewNotificationService(notificationRepo, userRepo, eventBus, &cfg.Features, logger)
	comments := NewCommentService(commentRepo, postRepo, userRepo, notifications, eventBus, cacheService, &cfg.Features, logger)
	threads, err := NewThreadService(commentRepo, postRepo, eventBus, logger)
	if err != nil {
		return nil, err
	}

	return &Collection{
		Comments:      comments,
		Notifications: notifications,
		Threads:       threads,
	}, nil
}
