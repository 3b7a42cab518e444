package repositories

import (
	"fmt"

	"admithub/internal/database"

	"go.uber.org/zap"
)

// Collection bundles all repositories for dependency injection
type Collection struct {
	User        UserRepository
	Session     SessionRepository
	Application ApplicationRepository
}

// NewCollection creates all repositories against a shared database manager
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Collection{
		User:        NewUserRepository(db, logger),
		Session:     NewSessionRepository(db, logger),
		Application: NewApplicationRepository(db, logger),
	}, nil
}
