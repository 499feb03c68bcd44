package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"threadhub/internal/database"
	"threadhub/internal/models"

	"go.uber.org/zap"
)

type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.Manager, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a notification record.
func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	err := r.QueryRowContext(ctx, `
		INSERT INTO notifications (
			company_id, user_id, type, title, message,
			post_id, comment_id, mentioned_by_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		notification.CompanyID, notification.UserID, notification.Type,
		notification.Title, notification.Message,
		notification.PostID, notification.CommentID, notification.MentionedByID,
	).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ExistsForMention reports whether the recipient already holds a mention
// notification for the given comment.
func (r *notificationRepository) ExistsForMention(ctx context.Context, companyID, userID, commentID int64) (bool, error) {
	var exists bool
	err := r.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE company_id = $1 AND user_id = $2
			  AND comment_id = $3 AND type = $4
		)`,
		companyID, userID, commentID, models.NotificationTypeMention,
	).Scan(&exists)
	return exists, err
}

// ListByUser returns a page of the recipient's notifications, newest
// first, along with the total count.
func (r *notificationRepository) ListByUser(ctx context.Context, companyID, userID int64, params models.PaginationParams) ([]*models.Notification, int64, error) {
	var total int64
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE company_id = $1 AND user_id = $2`,
		companyID, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := r.QueryContext(ctx, `
		SELECT n.id, n.company_id, n.user_id, n.type, n.title, n.message,
		       n.post_id, n.comment_id, u.username, n.mentioned_by_id,
		       n.read, n.created_at
		FROM notifications n
		JOIN users u ON u.id = n.mentioned_by_id
		WHERE n.company_id = $1 AND n.user_id = $2
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $3 OFFSET $4`,
		companyID, userID, params.Limit, params.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(
			&n.ID, &n.CompanyID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.PostID, &n.CommentID, &n.MentionedBy, &n.MentionedByID,
			&n.Read, &n.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, total, rows.Err()
}

// MarkRead marks one notification read; the recipient scoping in the
// WHERE clause keeps users from touching each other's records.
func (r *notificationRepository) MarkRead(ctx context.Context, companyID, userID, notificationID int64) error {
	result, err := r.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND company_id = $2 AND user_id = $3`,
		notificationID, companyID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead marks every unread notification for the recipient and
// returns how many were updated.
func (r *notificationRepository) MarkAllRead(ctx context.Context, companyID, userID int64) (int64, error) {
	result, err := r.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE company_id = $1 AND user_id = $2 AND read = FALSE`,
		companyID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// UnreadCount returns the recipient's unread notification count.
func (r *notificationRepository) UnreadCount(ctx context.Context, companyID, userID int64) (int64, error) {
	var count int64
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE company_id = $1 AND user_id = $2 AND read = FALSE`,
		companyID, userID,
	).Scan(&count)
	return count, err
}
