package events

import (
	"time"

	"threadhub/internal/models"

	"github.com/gofrs/uuid"
)

// Event types published by the comment write path. Thread subscribers
// re-fetch the full flat list on any of the comment.* types.
const (
	EventTypeCommentCreated = "comment.created"
	EventTypeCommentUpdated = "comment.updated"
	EventTypeCommentDeleted = "comment.deleted"
	EventTypeUserMentioned  = "user.mentioned"
)

// CommentEvent carries a comment lifecycle change.
type CommentEvent struct {
	BaseEvent
	PostID    int64 `json:"post_id"`
	CommentID int64 `json:"comment_id"`
	AuthorID  int64 `json:"author_id"`
	IsReply   bool  `json:"is_reply"`
}

// MentionEvent records that a comment mentioned a tenant member.
type MentionEvent struct {
	BaseEvent
	PostID          int64  `json:"post_id"`
	CommentID       int64  `json:"comment_id"`
	MentionedUserID int64  `json:"mentioned_user_id"`
	MentionedByID   int64  `json:"mentioned_by_id"`
	MentionedByName string `json:"mentioned_by_name"`
}

// NewCommentCreatedEvent builds the event published after a comment row
// and its counters have committed.
func NewCommentCreatedEvent(comment *models.Comment) *CommentEvent {
	return newCommentEvent(EventTypeCommentCreated, comment)
}

// NewCommentUpdatedEvent builds the event published after an edit commits.
func NewCommentUpdatedEvent(comment *models.Comment) *CommentEvent {
	return newCommentEvent(EventTypeCommentUpdated, comment)
}

// NewCommentDeletedEvent builds the event published after a delete commits.
func NewCommentDeletedEvent(comment *models.Comment) *CommentEvent {
	return newCommentEvent(EventTypeCommentDeleted, comment)
}

func newCommentEvent(eventType string, comment *models.Comment) *CommentEvent {
	return &CommentEvent{
		BaseEvent: BaseEvent{
			EventID:   newEventID(),
			EventType: eventType,
			Timestamp: time.Now().UTC(),
			CompanyID: comment.CompanyID,
		},
		PostID:    comment.PostID,
		CommentID: comment.ID,
		AuthorID:  comment.AuthorID,
		IsReply:   comment.IsReply(),
	}
}

// NewMentionEvent builds the event published for each notified mention.
func NewMentionEvent(notification *models.Notification, companyID int64) *MentionEvent {
	commentID := int64(0)
	if notification.CommentID != nil {
		commentID = *notification.CommentID
	}
	return &MentionEvent{
		BaseEvent: BaseEvent{
			EventID:   newEventID(),
			EventType: EventTypeUserMentioned,
			Timestamp: time.Now().UTC(),
			CompanyID: companyID,
		},
		PostID:          notification.PostID,
		CommentID:       commentID,
		MentionedUserID: notification.UserID,
		MentionedByID:   notification.MentionedByID,
		MentionedByName: notification.MentionedBy,
	}
}

func newEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// NewV4 only fails when the entropy source does; fall back to a
		// timestamp so the event still carries a usable identifier.
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return id.String()
}
