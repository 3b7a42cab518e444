package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"admithub/internal/database"
	"admithub/internal/models"

	"go.uber.org/zap"
)

// userRepository implements UserRepository
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const userColumns = `
	id, email, password_hash, is_active, first_name, last_name, phone,
	address, profile_url, profile_public_id, role, application_status,
	is_application_completed, created_at, updated_at, last_seen`

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.IsActive,
		&user.FirstName, &user.LastName, &user.Phone, &user.Address,
		&user.ProfileURL, &user.ProfilePublicID, &user.Role,
		&user.ApplicationStatus, &user.IsApplicationCompleted,
		&user.CreatedAt, &user.UpdatedAt, &user.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ===============================
// BASIC CRUD OPERATIONS
// ===============================

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			email, password_hash, first_name, last_name, phone, address, role
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, application_status, is_application_completed,
			created_at, updated_at, last_seen`

	err := r.QueryRowContext(
		ctx, query,
		strings.ToLower(user.Email), user.PasswordHash,
		user.FirstName, user.LastName, user.Phone, user.Address, user.Role,
	).Scan(
		&user.ID, &user.IsActive,
		&user.ApplicationStatus, &user.IsApplicationCompleted,
		&user.CreatedAt, &user.UpdatedAt, &user.LastSeen,
	)

	if err != nil {
		r.GetLogger().Error("Failed to create user",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.Email = strings.ToLower(user.Email)

	r.GetLogger().Info("User created",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`

	user, err := scanUser(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active = true`

	user, err := scanUser(r.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// Update updates a user's profile fields
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, address = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.QueryRowContext(
		ctx, query,
		user.ID, user.FirstName, user.LastName, user.Phone, user.Address,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if r.IsNotFound(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// UpdateProfilePhoto stores the Cloudinary URL and public ID
func (r *userRepository) UpdateProfilePhoto(ctx context.Context, userID int64, url, publicID string) error {
	query := `
		UPDATE users
		SET profile_url = $2, profile_public_id = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, userID, url, publicID)
	if err != nil {
		return fmt.Errorf("failed to update profile photo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateRole changes a user's role
func (r *userRepository) UpdateRole(ctx context.Context, userID int64, role string) error {
	result, err := r.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	r.GetLogger().Info("User role updated",
		zap.Int64("user_id", userID),
		zap.String("role", role),
	)

	return nil
}

// UpdateLastSeen bumps the last_seen timestamp
func (r *userRepository) UpdateLastSeen(ctx context.Context, userID int64) error {
	_, err := r.ExecContext(ctx,
		`UPDATE users SET last_seen = NOW() WHERE id = $1`, userID)
	return err
}

// SetApplicationFlags refreshes the mirrored application state on the user row
func (r *userRepository) SetApplicationFlags(ctx context.Context, userID int64, status models.ApplicationStatus, completed bool) error {
	query := `
		UPDATE users
		SET application_status = $2, is_application_completed = $3, updated_at = NOW()
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, userID, status, completed)
	if err != nil {
		return fmt.Errorf("failed to set application flags: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users ordered per params, with the total count
func (r *userRepository) List(ctx context.Context, params models.PaginationParams) ([]*models.User, int64, error) {
	params.Normalize()

	total, err := r.GetTotalCount(ctx, `SELECT COUNT(*) FROM users WHERE is_active = true`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = true` +
		r.BuildOrderClause(params) + ` LIMIT $1 OFFSET $2`

	rows, err := r.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Delete removes a user; the applications row follows via ON DELETE CASCADE
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	r.GetLogger().Info("User deleted", zap.Int64("user_id", id))

	return nil
}
