package repositories

import (
	"context"

	"threadhub/internal/models"
)

// ===============================
// REPOSITORY INTERFACES
// ===============================

// CommentRepository handles comment persistence and the counter updates
// that ride along in the same transaction.
type CommentRepository interface {
	// Create inserts the comment and bumps the parent's reply_count and
	// the post's comments_count atomically with the insert.
	Create(ctx context.Context, comment *models.Comment) error

	GetByID(ctx context.Context, companyID, commentID int64) (*models.Comment, error)

	// ListByPost returns the full flat list for a post, ordered by
	// created_at then id ascending. Thread rebuilds depend on that order.
	ListByPost(ctx context.Context, companyID, postID int64) ([]*models.Comment, error)

	// UpdateText replaces the comment body and stamps the edit marker.
	UpdateText(ctx context.Context, comment *models.Comment) error

	// Delete removes the comment and reverses the counter updates made at
	// create time. Replies of the deleted comment are left in place.
	Delete(ctx context.Context, companyID, commentID int64) (*models.Comment, error)

	IncrementLikes(ctx context.Context, companyID, commentID int64, delta int) error
}

// UserRepository resolves tenant members for mention dispatch and auth.
type UserRepository interface {
	GetByID(ctx context.Context, companyID, userID int64) (*models.User, error)

	// GetByUsername resolves a username within a tenant. Lookup is
	// case-sensitive, matching mention extraction.
	GetByUsername(ctx context.Context, companyID int64, username string) (*models.User, error)

	// GetByUsernames resolves a batch of usernames in one query; unknown
	// names are simply absent from the result.
	GetByUsernames(ctx context.Context, companyID int64, usernames []string) (map[string]*models.User, error)
}

// PostRepository covers the post reads the comment path needs.
type PostRepository interface {
	GetByID(ctx context.Context, companyID, postID int64) (*models.Post, error)
	Exists(ctx context.Context, companyID, postID int64) (bool, error)
}

// NotificationRepository handles mention notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error

	// ExistsForMention reports whether the recipient already has a mention
	// notification for this comment; used to keep dispatch idempotent.
	ExistsForMention(ctx context.Context, companyID, userID int64, commentID int64) (bool, error)

	ListByUser(ctx context.Context, companyID, userID int64, params models.PaginationParams) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, companyID, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, companyID, userID int64) (int64, error)
	UnreadCount(ctx context.Context, companyID, userID int64) (int64, error)
}
