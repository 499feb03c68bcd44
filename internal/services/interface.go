package services

import (
	"context"

	"threadhub/internal/models"
)

// ===============================
// SERVICE INTERFACES
// ===============================

// CommentService is the write and read path for threaded comments.
type CommentService interface {
	CreateComment(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error)
	GetComment(ctx context.Context, companyID, commentID int64) (*models.Comment, error)
	UpdateComment(ctx context.Context, req *UpdateCommentRequest) (*models.Comment, error)
	DeleteComment(ctx context.Context, req *DeleteCommentRequest) error

	// GetThread returns the post's comment tree built from the full flat
	// list, along with the aggregate counts.
	GetThread(ctx context.Context, companyID, postID int64) (*ThreadSnapshot, error)

	LikeComment(ctx context.Context, companyID, commentID int64) error
	UnlikeComment(ctx context.Context, companyID, commentID int64) error
}

// NotificationService creates and serves mention notifications.
type NotificationService interface {
	// DispatchMentions resolves the @mentions in a comment and persists a
	// notification per mentioned member. It never returns an error: a
	// failed dispatch must not fail the comment write that triggered it.
	DispatchMentions(ctx context.Context, comment *models.Comment) *MentionDispatchResult

	ListNotifications(ctx context.Context, req *ListNotificationsRequest) (*models.PaginatedResponse[*models.Notification], error)
	MarkRead(ctx context.Context, companyID, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, companyID, userID int64) (int64, error)
	UnreadCount(ctx context.Context, companyID, userID int64) (int64, error)
}

// ThreadService keeps subscribers' view of a thread synchronized with
// the store. Every comment change triggers a full re-fetch and tree
// rebuild pushed to all subscribers of that post.
type ThreadService interface {
	Subscribe(ctx context.Context, companyID, postID int64) (*ThreadSubscription, error)

	// Unsubscribe tears down a subscription. Unsubscribing twice, or with
	// an unknown ID, is a no-op.
	Unsubscribe(subscriptionID string)

	Close()
}
