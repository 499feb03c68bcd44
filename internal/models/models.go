package models

import (
	"strings"
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// User represents a tenant member able to author comments and receive mentions
type User struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id" validate:"required"`
	Username  string `json:"username" db:"username" validate:"required,min=3,max=30"`
	Email     string `json:"email" db:"email" validate:"required,email,max=320"`

	// Profile
	DisplayName string `json:"display_name" db:"display_name"`
	Role        string `json:"role" db:"role" validate:"required,oneof=member moderator admin"`
	IsActive    bool   `json:"is_active" db:"is_active"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Post represents the discussed content a comment thread hangs off
type Post struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id" validate:"required"`
	UserID    int64  `json:"user_id" db:"user_id" validate:"required"`
	Title     string `json:"title" db:"title" validate:"required,min=3,max=255"`
	Content   string `json:"content" db:"content" validate:"required,max=50000"`

	// Engagement tracking
	CommentsCount int `json:"comments_count" db:"comments_count"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Author information (joined)
	AuthorName string `json:"author_name" db:"author_name"`
}

// Comment represents a single comment on a post, optionally a reply to
// another comment in the same post
type Comment struct {
	// Core fields
	ID        int64 `json:"id" db:"id"`
	CompanyID int64 `json:"company_id" db:"company_id" validate:"required"`
	PostID    int64 `json:"post_id" db:"post_id" validate:"required"`

	// Thread support; nil means top-level comment
	ParentCommentID *int64 `json:"parent_comment_id,omitempty" db:"parent_comment_id"`

	// Author identity; AuthorName is a pseudonym when IsAnonymous is set
	AuthorID    int64  `json:"author_id" db:"author_id" validate:"required"`
	AuthorName  string `json:"author_name" db:"author_name"`
	AuthorRole  string `json:"author_role" db:"author_role"`
	IsAnonymous bool   `json:"is_anonymous" db:"is_anonymous"`

	// Content
	Text     string     `json:"text" db:"text" validate:"required,min=1,max=10000"`
	Edited   bool       `json:"edited" db:"edited"`
	EditedAt *time.Time `json:"edited_at,omitempty" db:"edited_at"`

	// Engagement tracking
	Likes      int `json:"likes" db:"likes"`
	ReplyCount int `json:"reply_count" db:"reply_count"`

	// Timestamps; CreatedAt is the primary sort key for thread rebuilds
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsReply reports whether the comment references a parent comment.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

// DisplayAuthor returns the name shown for the comment's author.
func (c *Comment) DisplayAuthor() string {
	if c.IsAnonymous {
		return "Anonymous"
	}
	return c.AuthorName
}

// CommentNode is a comment with its direct replies attached, as produced
// by the thread builder. Replies preserve CreatedAt order.
type CommentNode struct {
	*Comment
	Replies []*CommentNode `json:"replies"`
}

// NotificationTypeMention is the type tag for mention notifications.
const NotificationTypeMention = "mention"

// Notification is a persisted record created when a member is mentioned
type Notification struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id" validate:"required"`
	UserID    int64  `json:"user_id" db:"user_id" validate:"required"`
	Type      string `json:"type" db:"type" validate:"required,oneof=mention"`

	Title   string `json:"title" db:"title" validate:"required,max=255"`
	Message string `json:"message" db:"message" validate:"max=1000"`

	// Source of the mention; CommentID is nil for mentions in a post body
	PostID    int64  `json:"post_id" db:"post_id"`
	CommentID *int64 `json:"comment_id,omitempty" db:"comment_id"`

	MentionedBy   string `json:"mentioned_by" db:"mentioned_by"`
	MentionedByID int64  `json:"mentioned_by_id" db:"mentioned_by_id"`

	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ===============================
// PAGINATION
// ===============================

// PaginationParams holds standard listing parameters
type PaginationParams struct {
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
}

// Normalize clamps pagination to sane bounds.
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Sort == "" {
		p.Sort = "created_at"
	}
	if o := strings.ToLower(p.Order); o != "desc" {
		p.Order = "asc"
	} else {
		p.Order = "desc"
	}
}

// PaginationMeta describes a page of results
type PaginationMeta struct {
	CurrentPage  int  `json:"current_page"`
	ItemsPerPage int  `json:"items_per_page"`
	TotalItems   int  `json:"total_items"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

// PaginatedResponse wraps a page of data with its metadata
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	Filters    map[string]any `json:"filters,omitempty"`
}
