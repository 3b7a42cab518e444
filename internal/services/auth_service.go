package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"admithub/internal/config"
	"admithub/internal/events"
	"admithub/internal/models"
	"admithub/internal/repositories"
	"admithub/internal/validation"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// authService implements AuthService
type authService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	appService  ApplicationService
	events      events.EventBus
	config      *config.AuthConfig
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	appService ApplicationService,
	events events.EventBus,
	config *config.AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		appService:  appService,
		events:      events,
		config:      config,
		logger:      logger,
	}
}

// Register creates an account and its empty application
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid registration request", err)
	}
	if len(req.Password) < s.config.MinPasswordLength {
		return nil, NewValidationError(
			fmt.Sprintf("password must be at least %d characters", s.config.MinPasswordLength), nil)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, _ := s.userRepo.GetByEmail(ctx, email); existing != nil {
		return nil, NewConflictError("an account with this email already exists", "EMAIL_TAKEN")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, NewInternalError("failed to process password")
	}

	role := models.RoleUser
	for _, adminEmail := range s.config.AdminEmails {
		if strings.EqualFold(adminEmail, email) {
			role = models.RoleAdmin
			break
		}
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err, "") {
			return nil, NewConflictError("an account with this email already exists", "EMAIL_TAKEN")
		}
		s.logger.Error("Failed to create user", zap.Error(err), zap.String("email", email))
		return nil, NewInternalError("failed to create account")
	}

	// Every applicant gets a draft application from day one
	if _, err := s.appService.EnsureApplication(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to create initial application", zap.Error(err), zap.Int64("user_id", user.ID))
	}

	if err := s.events.PublishAsync(ctx, events.NewUserRegisteredEvent(user.ID, user.Email)); err != nil {
		s.logger.Warn("Failed to publish user registered event", zap.Error(err))
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return s.issueCredentials(ctx, user)
}

// Login authenticates a user and issues fresh credentials
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid login request", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to look up user", zap.Error(err), zap.String("email", email))
		return nil, NewInternalError("failed to authenticate")
	}
	if user == nil {
		// Same error for unknown email and bad password
		return nil, NewUnauthorizedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Failed login attempt", zap.String("email", email))
		return nil, NewUnauthorizedError("invalid email or password")
	}

	if err := s.events.PublishAsync(ctx, events.NewUserLoggedInEvent(user.ID, user.Email)); err != nil {
		s.logger.Warn("Failed to publish login event", zap.Error(err))
	}

	return s.issueCredentials(ctx, user)
}

// Logout deactivates the caller's session
func (s *authService) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return NewValidationError("session token is required", nil)
	}

	if err := s.sessionRepo.Deactivate(ctx, sessionToken); err != nil {
		s.logger.Error("Failed to deactivate session", zap.Error(err))
		return NewInternalError("failed to log out")
	}
	return nil
}

// issueCredentials mints a JWT and a backing session row
func (s *authService) issueCredentials(ctx context.Context, user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(s.config.JWTExpiry)

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign JWT", zap.Error(err))
		return nil, NewInternalError("failed to issue credentials")
	}

	sessionToken, err := uuid.NewV4()
	if err != nil {
		s.logger.Error("Failed to generate session token", zap.Error(err))
		return nil, NewInternalError("failed to issue credentials")
	}

	session := &models.Session{
		UserID:       user.ID,
		SessionToken: sessionToken.String(),
		ExpiresAt:    time.Now().Add(s.config.SessionExpiry),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session", zap.Error(err), zap.Int64("user_id", user.ID))
		return nil, NewInternalError("failed to issue credentials")
	}

	user.PasswordHash = ""
	return &AuthResponse{
		User:         user,
		Token:        signed,
		SessionToken: session.SessionToken,
		ExpiresAt:    expiresAt,
	}, nil
}
