package services

import (
	"threadhub/internal/models"
)

// ===============================
// REQUEST TYPES
// ===============================

// CreateCommentRequest carries a new comment or reply.
type CreateCommentRequest struct {
	CompanyID       int64  `json:"company_id" validate:"required"`
	PostID          int64  `json:"post_id" validate:"required"`
	AuthorID        int64  `json:"author_id" validate:"required"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
	Text            string `json:"text" validate:"required,min=1"`
	IsAnonymous     bool   `json:"is_anonymous"`
}

// UpdateCommentRequest carries an edit to an existing comment.
type UpdateCommentRequest struct {
	CompanyID int64  `json:"company_id" validate:"required"`
	CommentID int64  `json:"comment_id" validate:"required"`
	EditorID  int64  `json:"editor_id" validate:"required"`
	Text      string `json:"text" validate:"required,min=1"`
}

// DeleteCommentRequest carries a comment deletion.
type DeleteCommentRequest struct {
	CompanyID     int64  `json:"company_id" validate:"required"`
	CommentID     int64  `json:"comment_id" validate:"required"`
	RequesterID   int64  `json:"requester_id" validate:"required"`
	RequesterRole string `json:"requester_role"`
}

// ListNotificationsRequest pages through a recipient's notifications.
type ListNotificationsRequest struct {
	CompanyID  int64 `json:"company_id" validate:"required"`
	UserID     int64 `json:"user_id" validate:"required"`
	Pagination models.PaginationParams
}

// ===============================
// RESULT TYPES
// ===============================

// MentionDispatchResult summarizes one mention dispatch run. Success is
// true when every resolvable mention was notified or already had a
// notification; unresolved usernames alone never mark the run failed.
type MentionDispatchResult struct {
	Success    bool     `json:"success"`
	Count      int      `json:"count"`
	Failed     int      `json:"failed"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// ThreadSnapshot is one consistent view of a post's comment thread.
type ThreadSnapshot struct {
	PostID     int64                 `json:"post_id"`
	Tree       []*models.CommentNode `json:"tree"`
	TotalCount int                   `json:"total_count"`
}
