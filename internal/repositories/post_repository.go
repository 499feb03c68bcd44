package repositories

import (
	"context"

	"threadhub/internal/database"
	"threadhub/internal/models"

	"go.uber.org/zap"
)

type postRepository struct {
	*BaseRepository
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *database.Manager, logger *zap.Logger) PostRepository {
	return &postRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetByID fetches a post with its author joined.
func (r *postRepository) GetByID(ctx context.Context, companyID, postID int64) (*models.Post, error) {
	post := &models.Post{}
	err := r.QueryRowContext(ctx, `
		SELECT p.id, p.company_id, p.user_id, p.title, p.content,
		       p.comments_count, p.created_at, p.updated_at, u.username
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1 AND p.company_id = $2`,
		postID, companyID,
	).Scan(
		&post.ID, &post.CompanyID, &post.UserID, &post.Title, &post.Content,
		&post.CommentsCount, &post.CreatedAt, &post.UpdatedAt, &post.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Exists reports whether the post exists within the tenant.
func (r *postRepository) Exists(ctx context.Context, companyID, postID int64) (bool, error) {
	var exists bool
	err := r.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM posts WHERE id = $1 AND company_id = $2
		)`,
		postID, companyID,
	).Scan(&exists)
	return exists, err
}
