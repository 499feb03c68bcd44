package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"threadhub/internal/cache"
	"threadhub/internal/config"
	"threadhub/internal/events"
	"threadhub/internal/models"
	"threadhub/internal/repositories"
	"threadhub/internal/thread"

	"go.uber.org/zap"
)

// threadSnapshotTTL caps snapshot staleness for readers; writes
// invalidate eagerly so the TTL only matters as a backstop.
const threadSnapshotTTL = 30 * time.Second

type commentService struct {
	commentRepo  repositories.CommentRepository
	postRepo     repositories.PostRepository
	userRepo     repositories.UserRepository
	notification NotificationService
	eventBus     events.EventBus
	cache        cache.Cache
	features     *config.FeatureConfig
	logger       *zap.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notification NotificationService,
	eventBus events.EventBus,
	cacheService cache.Cache,
	features *config.FeatureConfig,
	logger *zap.Logger,
) CommentService {
	return &commentService{
		commentRepo:  commentRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		notification: notification,
		eventBus:     eventBus,
		cache:        cacheService,
		features:     features,
		logger:       logger,
	}
}

// ===============================
// WRITE PATH
// ===============================

// CreateComment validates, rate-limits, and persists a comment, then
// kicks off mention dispatch without blocking the response.
func (s *commentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*models.Comment, error) {
	text, err := s.validateText(req.Text)
	if err != nil {
		return nil, err
	}

	if err := s.checkRateLimit(ctx, req.CompanyID, req.AuthorID); err != nil {
		return nil, err
	}

	exists, err := s.postRepo.Exists(ctx, req.CompanyID, req.PostID)
	if err != nil {
		return nil, NewInternalError("failed to check post")
	}
	if !exists {
		return nil, NewNotFoundError("post not found")
	}

	author, err := s.userRepo.GetByID(ctx, req.CompanyID, req.AuthorID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFoundError("author not found")
		}
		return nil, NewInternalError("failed to load author")
	}
	if !author.IsActive {
		return nil, NewForbiddenError("inactive members cannot comment")
	}

	comment := &models.Comment{
		CompanyID:       req.CompanyID,
		PostID:          req.PostID,
		ParentCommentID: req.ParentCommentID,
		AuthorID:        author.ID,
		AuthorName:      author.Username,
		AuthorRole:      author.Role,
		IsAnonymous:     req.IsAnonymous,
		Text:            text,
	}

	if err := models.ValidateModel(comment); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrParentNotFound) {
			return nil, NewValidationError("parent comment not found in post", err)
		}
		s.logger.Error("failed to create comment",
			zap.Int64("company_id", req.CompanyID),
			zap.Int64("post_id", req.PostID),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to create comment")
	}

	s.logger.Info("comment created",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("post_id", comment.PostID),
		zap.Bool("is_reply", comment.IsReply()),
	)

	s.afterWrite(ctx, events.NewCommentCreatedEvent(comment), comment)

	return comment, nil
}

// UpdateComment applies an edit. Only the author may edit; mentions added
// by the edit are dispatched, with dedup keeping earlier recipients from
// being notified twice.
func (s *commentService) UpdateComment(ctx context.Context, req *UpdateCommentRequest) (*models.Comment, error) {
	text, err := s.validateText(req.Text)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, req.CompanyID, req.CommentID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFoundError("comment not found")
		}
		return nil, NewInternalError("failed to load comment")
	}

	if comment.AuthorID != req.EditorID {
		return nil, NewForbiddenError("only the author can edit a comment")
	}

	comment.Text = text
	if err := s.commentRepo.UpdateText(ctx, comment); err != nil {
		s.logger.Error("failed to update comment",
			zap.Int64("comment_id", comment.ID),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to update comment")
	}

	s.afterWrite(ctx, events.NewCommentUpdatedEvent(comment), comment)

	return comment, nil
}

// DeleteComment removes a comment. The author, moderators, and admins may
// delete; replies to the deleted comment stay in the store and fall out
// of rendered trees.
func (s *commentService) DeleteComment(ctx context.Context, req *DeleteCommentRequest) error {
	comment, err := s.commentRepo.GetByID(ctx, req.CompanyID, req.CommentID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFoundError("comment not found")
		}
		return NewInternalError("failed to load comment")
	}

	if comment.AuthorID != req.RequesterID && !isModerator(req.RequesterRole) {
		return NewForbiddenError("not allowed to delete this comment")
	}

	deleted, err := s.commentRepo.Delete(ctx, req.CompanyID, req.CommentID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFoundError("comment not found")
		}
		s.logger.Error("failed to delete comment",
			zap.Int64("comment_id", req.CommentID),
			zap.Error(err),
		)
		return NewInternalError("failed to delete comment")
	}

	s.logger.Info("comment deleted",
		zap.Int64("comment_id", deleted.ID),
		zap.Int64("post_id", deleted.PostID),
		zap.Int64("requester_id", req.RequesterID),
	)

	s.invalidateThread(ctx, deleted.CompanyID, deleted.PostID)
	if err := s.eventBus.PublishAsync(ctx, events.NewCommentDeletedEvent(deleted)); err != nil {
		s.logger.Warn("failed to publish comment event", zap.Error(err))
	}
	return nil
}

// LikeComment bumps the like counter.
func (s *commentService) LikeComment(ctx context.Context, companyID, commentID int64) error {
	return s.adjustLikes(ctx, companyID, commentID, 1)
}

// UnlikeComment drops the like counter, floored at zero.
func (s *commentService) UnlikeComment(ctx context.Context, companyID, commentID int64) error {
	return s.adjustLikes(ctx, companyID, commentID, -1)
}

func (s *commentService) adjustLikes(ctx context.Context, companyID, commentID int64, delta int) error {
	if err := s.commentRepo.IncrementLikes(ctx, companyID, commentID, delta); err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFoundError("comment not found")
		}
		return NewInternalError("failed to update likes")
	}
	return nil
}

// ===============================
// READ PATH
// ===============================

// GetComment fetches a single comment.
func (s *commentService) GetComment(ctx context.Context, companyID, commentID int64) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, companyID, commentID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NewNotFoundError("comment not found")
		}
		return nil, NewInternalError("failed to load comment")
	}
	return comment, nil
}

// GetThread fetches the full flat list and rebuilds the tree. Snapshots
// are cached briefly; every comment write for the post invalidates them.
func (s *commentService) GetThread(ctx context.Context, companyID, postID int64) (*ThreadSnapshot, error) {
	key := threadCacheKey(companyID, postID)
	if cached, found := s.cache.Get(ctx, key); found {
		if snapshot, ok := decodeThreadSnapshot(cached); ok {
			return snapshot, nil
		}
	}

	exists, err := s.postRepo.Exists(ctx, companyID, postID)
	if err != nil {
		return nil, NewInternalError("failed to check post")
	}
	if !exists {
		return nil, NewNotFoundError("post not found")
	}

	flat, err := s.commentRepo.ListByPost(ctx, companyID, postID)
	if err != nil {
		return nil, NewInternalError("failed to load comments")
	}

	tree := thread.BuildCommentTree(flat)
	snapshot := &ThreadSnapshot{
		PostID:     postID,
		Tree:       tree,
		TotalCount: thread.CountNodes(tree),
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := s.cache.Set(ctx, key, data, threadSnapshotTTL); err != nil {
			s.logger.Warn("failed to cache thread snapshot", zap.Error(err))
		}
	}
	return snapshot, nil
}

// decodeThreadSnapshot turns whatever the cache provider hands back into
// a typed snapshot. The memory provider returns the stored bytes as-is;
// the redis provider decodes JSON into generic values, which are
// re-marshaled before decoding. Anything undecodable counts as a miss.
func decodeThreadSnapshot(value interface{}) (*ThreadSnapshot, bool) {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		generic, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		data = generic
	}

	snapshot := &ThreadSnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, false
	}
	return snapshot, true
}

// ===============================
// INTERNAL HELPERS
// ===============================

func (s *commentService) validateText(text string) (string, error) {
	trimmed := models.SanitizeString(text)
	if trimmed == "" {
		return "", NewValidationError("comment text cannot be empty", nil)
	}
	if len(trimmed) > s.features.MaxCommentLength {
		return "", NewValidationError(
			fmt.Sprintf("comment text exceeds %d characters", s.features.MaxCommentLength), nil)
	}
	return trimmed, nil
}

// checkRateLimit counts comments per author per clock hour in the cache.
func (s *commentService) checkRateLimit(ctx context.Context, companyID, authorID int64) error {
	if s.features.MaxCommentsPerHour <= 0 {
		return nil
	}

	key := fmt.Sprintf("ratelimit:comments:%d:%d:%s",
		companyID, authorID, time.Now().UTC().Format("2006010215"))

	count, err := s.cache.Increment(ctx, key, 1)
	if err != nil {
		// The limiter is advisory; a cache outage must not block writes.
		s.logger.Warn("rate limit check unavailable", zap.Error(err))
		return nil
	}
	if count == 1 {
		if err := s.cache.SetTTL(ctx, key, time.Hour); err != nil {
			s.logger.Warn("failed to set rate limit TTL", zap.Error(err))
		}
	}
	if count > int64(s.features.MaxCommentsPerHour) {
		return NewRateLimitError("comment rate limit exceeded", map[string]interface{}{
			"limit":  s.features.MaxCommentsPerHour,
			"window": "1h",
		})
	}
	return nil
}

// afterWrite invalidates cached snapshots, publishes the thread sync
// event, and dispatches mentions. Mention dispatch runs detached from
// the request context so client disconnects never abort notification
// persistence.
func (s *commentService) afterWrite(ctx context.Context, event events.Event, comment *models.Comment) {
	s.invalidateThread(ctx, comment.CompanyID, comment.PostID)

	if err := s.eventBus.PublishAsync(ctx, event); err != nil {
		s.logger.Warn("failed to publish comment event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}

	dispatchCtx := context.WithoutCancel(ctx)
	go func() {
		result := s.notification.DispatchMentions(dispatchCtx, comment)
		if result.Failed > 0 {
			s.logger.Warn("mention dispatch finished with failures",
				zap.Int64("comment_id", comment.ID),
				zap.Int("notified", result.Count),
				zap.Int("failed", result.Failed),
			)
		}
	}()
}

func (s *commentService) invalidateThread(ctx context.Context, companyID, postID int64) {
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("thread:%d:%d:*", companyID, postID)); err != nil {
		s.logger.Warn("failed to invalidate thread snapshot cache",
			zap.Int64("post_id", postID),
			zap.Error(err),
		)
	}
}

func threadCacheKey(companyID, postID int64) string {
	return fmt.Sprintf("thread:%d:%d:snapshot", companyID, postID)
}

func isModerator(role string) bool {
	return role == "moderator" || role == "admin"
}
