package services

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"threadhub/internal/config"
	"threadhub/internal/events"
	"threadhub/internal/mentions"
	"threadhub/internal/models"
	"threadhub/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// messageSnippetLength caps how much comment text is copied into the
	// notification message.
	messageSnippetLength = 200

	maxDispatchRetries = 3
)

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	eventBus         events.EventBus
	features         *config.FeatureConfig
	logger           *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	eventBus events.EventBus,
	features *config.FeatureConfig,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		eventBus:         eventBus,
		features:         features,
		logger:           logger,
	}
}

// ===============================
// MENTION DISPATCH
// ===============================

// DispatchMentions extracts the @mentions from the comment and notifies
// each mentioned tenant member. Rules, in order:
//   - usernames that resolve to no member in the tenant are skipped
//   - the comment's author never receives a notification for mentioning
//     themselves
//   - a recipient already holding a mention notification for this comment
//     is not notified again
//
// Recipients are processed concurrently and each store write is retried
// with backoff. The method reports failures in the result instead of
// returning an error; the comment that triggered dispatch is already
// committed and must stand regardless.
func (s *notificationService) DispatchMentions(ctx context.Context, comment *models.Comment) *MentionDispatchResult {
	result := &MentionDispatchResult{Success: true}

	if !s.features.EnableMentions {
		return result
	}

	usernames := mentions.ExtractMentionedUsernames(comment.Text)
	if len(usernames) == 0 {
		return result
	}

	resolved, err := s.resolveMentioned(ctx, comment.CompanyID, usernames)
	if err != nil {
		s.logger.Error("failed to resolve mentioned usernames",
			zap.Int64("comment_id", comment.ID),
			zap.Error(err),
		)
		result.Success = false
		result.Failed = len(usernames)
		return result
	}

	var recipients []*models.User
	for _, username := range usernames {
		user, ok := resolved[username]
		if !ok {
			result.Unresolved = append(result.Unresolved, username)
			continue
		}
		if user.ID == comment.AuthorID {
			continue
		}
		if !user.IsActive {
			continue
		}
		recipients = append(recipients, user)
	}
	if len(recipients) == 0 {
		return result
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		notified int
		failed   int
	)

	for _, recipient := range recipients {
		wg.Add(1)
		go func(recipient *models.User) {
			defer wg.Done()

			created, err := s.notifyRecipient(ctx, comment, recipient)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			if created {
				notified++
			}
		}(recipient)
	}
	wg.Wait()

	result.Count = notified
	result.Failed = failed
	result.Success = failed == 0

	s.logger.Info("mention dispatch completed",
		zap.Int64("comment_id", comment.ID),
		zap.Int("notified", notified),
		zap.Int("failed", failed),
		zap.Int("unresolved", len(result.Unresolved)),
	)
	return result
}

// resolveMentioned maps mentioned usernames to tenant members; unknown
// names are simply absent from the result. A single mention, by far the
// common case, resolves with a point lookup instead of the array query.
func (s *notificationService) resolveMentioned(ctx context.Context, companyID int64, usernames []string) (map[string]*models.User, error) {
	if len(usernames) == 1 {
		user, err := s.userRepo.GetByUsername(ctx, companyID, usernames[0])
		if err != nil {
			if repositories.IsNotFound(err) {
				return map[string]*models.User{}, nil
			}
			return nil, err
		}
		return map[string]*models.User{usernames[0]: user}, nil
	}
	return s.userRepo.GetByUsernames(ctx, companyID, usernames)
}

// notifyRecipient persists one mention notification, retrying transient
// store failures. It reports whether a new notification was created.
func (s *notificationService) notifyRecipient(ctx context.Context, comment *models.Comment, recipient *models.User) (bool, error) {
	exists, err := s.notificationRepo.ExistsForMention(ctx, comment.CompanyID, recipient.ID, comment.ID)
	if err != nil {
		s.logger.Error("mention dedup check failed",
			zap.Int64("comment_id", comment.ID),
			zap.Int64("recipient_id", recipient.ID),
			zap.Error(err),
		)
		return false, NewTransientStoreError("dedup check failed", err)
	}
	if exists {
		return false, nil
	}

	notification := s.buildMentionNotification(comment, recipient)
	if errs := notification.Validate(); errs.HasErrors() {
		s.logger.Error("built an invalid notification",
			zap.Int64("comment_id", comment.ID),
			zap.Error(errs),
		)
		return false, NewValidationError("notification failed invariant checks", errs)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDispatchRetries)
	err = backoff.Retry(func() error {
		return s.notificationRepo.Create(ctx, notification)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		s.logger.Error("failed to persist mention notification",
			zap.Int64("comment_id", comment.ID),
			zap.Int64("recipient_id", recipient.ID),
			zap.Error(err),
		)
		return false, NewTransientStoreError("notification persistence failed", err)
	}

	if err := s.eventBus.PublishAsync(ctx, events.NewMentionEvent(notification, comment.CompanyID)); err != nil {
		s.logger.Warn("failed to publish mention event", zap.Error(err))
	}
	return true, nil
}

func (s *notificationService) buildMentionNotification(comment *models.Comment, recipient *models.User) *models.Notification {
	snippet := comment.Text
	if len(snippet) > messageSnippetLength {
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := messageSnippetLength
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut] + "..."
	}

	commentID := comment.ID
	return &models.Notification{
		CompanyID:     comment.CompanyID,
		UserID:        recipient.ID,
		Type:          models.NotificationTypeMention,
		Title:         fmt.Sprintf("%s mentioned you in a comment", comment.DisplayAuthor()),
		Message:       snippet,
		PostID:        comment.PostID,
		CommentID:     &commentID,
		MentionedBy:   comment.AuthorName,
		MentionedByID: comment.AuthorID,
		CreatedAt:     time.Now().UTC(),
	}
}

// ===============================
// NOTIFICATION READS
// ===============================

// ListNotifications returns a page of the recipient's notifications,
// newest first.
func (s *notificationService) ListNotifications(ctx context.Context, req *ListNotificationsRequest) (*models.PaginatedResponse[*models.Notification], error) {
	req.Pagination.Normalize()

	notifications, total, err := s.notificationRepo.ListByUser(ctx, req.CompanyID, req.UserID, req.Pagination)
	if err != nil {
		return nil, NewInternalError("failed to list notifications")
	}

	return &models.PaginatedResponse[*models.Notification]{
		Data:       notifications,
		Pagination: repositories.BuildPaginationMeta(req.Pagination, total),
	}, nil
}

// MarkRead marks a single notification read for its recipient.
func (s *notificationService) MarkRead(ctx context.Context, companyID, userID, notificationID int64) error {
	if err := s.notificationRepo.MarkRead(ctx, companyID, userID, notificationID); err != nil {
		if repositories.IsNotFound(err) {
			return NewNotFoundError("notification not found")
		}
		return NewInternalError("failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification for the recipient.
func (s *notificationService) MarkAllRead(ctx context.Context, companyID, userID int64) (int64, error) {
	updated, err := s.notificationRepo.MarkAllRead(ctx, companyID, userID)
	if err != nil {
		return 0, NewInternalError("failed to mark notifications read")
	}
	return updated, nil
}

// UnreadCount returns the recipient's unread notification count.
func (s *notificationService) UnreadCount(ctx context.Context, companyID, userID int64) (int64, error) {
	count, err := s.notificationRepo.UnreadCount(ctx, companyID, userID)
	if err != nil {
		return 0, NewInternalError("failed to count unread notifications")
	}
	return count, nil
}
