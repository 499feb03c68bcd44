package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"threadhub/internal/config"
	"threadhub/internal/database"
	"threadhub/internal/models"

	"go.uber.org/zap"
)

// ErrParentNotFound is returned when a reply references a parent comment
// that does not exist in the same post and tenant.
var ErrParentNotFound = errors.New("parent comment not found in post")

type commentRepository struct {
	*BaseRepository
	features *config.FeatureConfig
}

// counterPlan names the aggregate counters a comment write moves. The
// same plan applies on create (increment) and delete (decrement), which
// keeps the two paths symmetric for any flag setting.
type counterPlan struct {
	parentReplyCount  bool
	postCommentsCount bool
}

// planCounterUpdates decides which counters move for a comment with the
// given parent. Top-level comments always count toward the post total;
// replies only do when the tenant counts nested replies in it.
func planCounterUpdates(parentCommentID *int64, countRepliesInPostTotal bool) counterPlan {
	isReply := parentCommentID != nil
	return counterPlan{
		parentReplyCount:  isReply,
		postCommentsCount: !isReply || countRepliesInPostTotal,
	}
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.Manager, features *config.FeatureConfig, logger *zap.Logger) CommentRepository {
	return &commentRepository{
		BaseRepository: NewBaseRepository(db, logger),
		features:       features,
	}
}

// Create inserts the comment and maintains the aggregate counters in the
// same transaction. Counter updates are relative (`x = x + 1`) so
// concurrent writers never clobber each other.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		if comment.ParentCommentID != nil {
			var parentPostID int64
			err := tx.QueryRowContext(ctx, `
				SELECT post_id FROM comments
				WHERE id = $1 AND company_id = $2`,
				*comment.ParentCommentID, comment.CompanyID,
			).Scan(&parentPostID)
			if err == sql.ErrNoRows || (err == nil && parentPostID != comment.PostID) {
				return ErrParentNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to check parent comment: %w", err)
			}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO comments (
				company_id, post_id, parent_comment_id,
				author_id, is_anonymous, text
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			comment.CompanyID, comment.PostID, comment.ParentCommentID,
			comment.AuthorID, comment.IsAnonymous, comment.Text,
		).Scan(&comment.ID, &comment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}

		plan := planCounterUpdates(comment.ParentCommentID, r.features.CountRepliesInPostTotal)

		if plan.parentReplyCount {
			if _, err := tx.ExecContext(ctx, `
				UPDATE comments SET reply_count = reply_count + 1
				WHERE id = $1 AND company_id = $2`,
				*comment.ParentCommentID, comment.CompanyID,
			); err != nil {
				return fmt.Errorf("failed to increment reply count: %w", err)
			}
		}

		if plan.postCommentsCount {
			if _, err := tx.ExecContext(ctx, `
				UPDATE posts SET comments_count = comments_count + 1, updated_at = NOW()
				WHERE id = $1 AND company_id = $2`,
				comment.PostID, comment.CompanyID,
			); err != nil {
				return fmt.Errorf("failed to increment post comment count: %w", err)
			}
		}

		return nil
	})
}

const commentSelectColumns = `
	c.id, c.company_id, c.post_id, c.parent_comment_id,
	c.author_id, u.username, u.role, c.is_anonymous,
	c.text, c.edited, c.edited_at,
	c.likes, c.reply_count, c.created_at`

// GetByID fetches a single comment with its author joined.
func (r *commentRepository) GetByID(ctx context.Context, companyID, commentID int64) (*models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1 AND c.company_id = $2`, commentSelectColumns)

	comment := &models.Comment{}
	err := r.QueryRowContext(ctx, query, commentID, companyID).Scan(
		&comment.ID, &comment.CompanyID, &comment.PostID, &comment.ParentCommentID,
		&comment.AuthorID, &comment.AuthorName, &comment.AuthorRole, &comment.IsAnonymous,
		&comment.Text, &comment.Edited, &comment.EditedAt,
		&comment.Likes, &comment.ReplyCount, &comment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListByPost returns the flat comment list ordered by created_at then id,
// which is the order the tree builder expects.
func (r *commentRepository) ListByPost(ctx context.Context, companyID, postID int64) ([]*models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1 AND c.company_id = $2
		ORDER BY c.created_at ASC, c.id ASC`, commentSelectColumns)

	rows, err := r.QueryContext(ctx, query, postID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment := &models.Comment{}
		if err := rows.Scan(
			&comment.ID, &comment.CompanyID, &comment.PostID, &comment.ParentCommentID,
			&comment.AuthorID, &comment.AuthorName, &comment.AuthorRole, &comment.IsAnonymous,
			&comment.Text, &comment.Edited, &comment.EditedAt,
			&comment.Likes, &comment.ReplyCount, &comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// UpdateText replaces the body and stamps the edit marker.
func (r *commentRepository) UpdateText(ctx context.Context, comment *models.Comment) error {
	err := r.QueryRowContext(ctx, `
		UPDATE comments
		SET text = $1, edited = TRUE, edited_at = NOW()
		WHERE id = $2 AND company_id = $3
		RETURNING edited, edited_at`,
		comment.Text, comment.ID, comment.CompanyID,
	).Scan(&comment.Edited, &comment.EditedAt)
	if err != nil {
		return err
	}
	return nil
}

// Delete removes the comment and reverses its counter contributions.
// Replies referencing the deleted comment are left in place; the tree
// builder drops them from rendered output.
func (r *commentRepository) Delete(ctx context.Context, companyID, commentID int64) (*models.Comment, error) {
	var deleted *models.Comment
	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		comment := &models.Comment{}
		err := tx.QueryRowContext(ctx, `
			SELECT id, company_id, post_id, parent_comment_id, author_id, is_anonymous, created_at
			FROM comments
			WHERE id = $1 AND company_id = $2
			FOR UPDATE`,
			commentID, companyID,
		).Scan(
			&comment.ID, &comment.CompanyID, &comment.PostID, &comment.ParentCommentID,
			&comment.AuthorID, &comment.IsAnonymous, &comment.CreatedAt,
		)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM comments WHERE id = $1 AND company_id = $2`,
			commentID, companyID,
		); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}

		plan := planCounterUpdates(comment.ParentCommentID, r.features.CountRepliesInPostTotal)

		if plan.parentReplyCount {
			// GREATEST keeps a corrupt counter from going negative.
			if _, err := tx.ExecContext(ctx, `
				UPDATE comments SET reply_count = GREATEST(reply_count - 1, 0)
				WHERE id = $1 AND company_id = $2`,
				*comment.ParentCommentID, comment.CompanyID,
			); err != nil {
				return fmt.Errorf("failed to decrement reply count: %w", err)
			}
		}

		if plan.postCommentsCount {
			if _, err := tx.ExecContext(ctx, `
				UPDATE posts SET comments_count = GREATEST(comments_count - 1, 0), updated_at = NOW()
				WHERE id = $1 AND company_id = $2`,
				comment.PostID, comment.CompanyID,
			); err != nil {
				return fmt.Errorf("failed to decrement post comment count: %w", err)
			}
		}

		deleted = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// IncrementLikes adjusts the like counter atomically.
func (r *commentRepository) IncrementLikes(ctx context.Context, companyID, commentID int64, delta int) error {
	result, err := r.ExecContext(ctx, `
		UPDATE comments SET likes = GREATEST(likes + $1, 0)
		WHERE id = $2 AND company_id = $3`,
		delta, commentID, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update likes: %w", err)
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
