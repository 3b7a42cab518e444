package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"admithub/internal/database"
	"admithub/internal/models"

	"go.uber.org/zap"
)

// sessionRepository implements SessionRepository
type sessionRepository struct {
	*BaseRepository
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.Manager, logger *zap.Logger) SessionRepository {
	return &sessionRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a new session row
func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, session_token, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, last_activity, created_at`

	err := r.QueryRowContext(
		ctx, query,
		session.UserID, session.SessionToken, session.ExpiresAt,
		session.IPAddress, session.UserAgent,
	).Scan(&session.ID, &session.IsActive, &session.LastActivity, &session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken retrieves an active, unexpired session
func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, session_token, expires_at, last_activity,
			ip_address, user_agent, is_active, created_at
		FROM sessions
		WHERE session_token = $1 AND is_active = true AND expires_at > NOW()`

	var session models.Session
	err := r.QueryRowContext(ctx, query, token).Scan(
		&session.ID, &session.UserID, &session.SessionToken,
		&session.ExpiresAt, &session.LastActivity,
		&session.IPAddress, &session.UserAgent,
		&session.IsActive, &session.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// Touch bumps last_activity
func (r *sessionRepository) Touch(ctx context.Context, token string) error {
	_, err := r.ExecContext(ctx,
		`UPDATE sessions SET last_activity = NOW() WHERE session_token = $1`, token)
	return err
}

// Deactivate ends a session (logout)
func (r *sessionRepository) Deactivate(ctx context.Context, token string) error {
	result, err := r.ExecContext(ctx,
		`UPDATE sessions SET is_active = false WHERE session_token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByUserID removes all sessions for a user
func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete sessions for user: %w", err)
	}
	return nil
}

// DeleteExpired purges expired and inactive sessions
func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < NOW() OR is_active = false`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	n, _ := result.RowsAffected()
	if n > 0 {
		r.GetLogger().Debug("Expired sessions purged", zap.Int64("count", n))
	}
	return n, nil
}
