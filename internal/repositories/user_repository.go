package repositories

import (
	"context"
	"fmt"
	"strings"

	"threadhub/internal/database"
	"threadhub/internal/models"

	"go.uber.org/zap"
)

type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const userSelectColumns = `
	id, company_id, username, email, display_name, role, is_active,
	created_at, updated_at`

// GetByID fetches a tenant member by ID.
func (r *userRepository) GetByID(ctx context.Context, companyID, userID int64) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE id = $1 AND company_id = $2`, userSelectColumns)

	user := &models.User{}
	err := r.QueryRowContext(ctx, query, userID, companyID).Scan(
		&user.ID, &user.CompanyID, &user.Username, &user.Email,
		&user.DisplayName, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsername resolves a username within a tenant. The comparison is
// case-sensitive so it matches mention extraction exactly.
func (r *userRepository) GetByUsername(ctx context.Context, companyID int64, username string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE username = $1 AND company_id = $2`, userSelectColumns)

	user := &models.User{}
	err := r.QueryRowContext(ctx, query, username, companyID).Scan(
		&user.ID, &user.CompanyID, &user.Username, &user.Email,
		&user.DisplayName, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsernames resolves a batch of usernames in a single query. Names
// with no matching member are absent from the returned map.
func (r *userRepository) GetByUsernames(ctx context.Context, companyID int64, usernames []string) (map[string]*models.User, error) {
	if len(usernames) == 0 {
		return map[string]*models.User{}, nil
	}

	placeholders := make([]string, len(usernames))
	args := make([]interface{}, 0, len(usernames)+1)
	args = append(args, companyID)
	for i, name := range usernames {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, name)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE company_id = $1 AND username IN (%s)`,
		userSelectColumns, strings.Join(placeholders, ", "))

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*models.User, len(usernames))
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(
			&user.ID, &user.CompanyID, &user.Username, &user.Email,
			&user.DisplayName, &user.Role, &user.IsActive,
			&user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.Username] = user
	}
	return users, rows.Err()
}
