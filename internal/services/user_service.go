package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"admithub/internal/cache"
	"admithub/internal/events"
	"admithub/internal/models"
	"admithub/internal/repositories"
	"admithub/internal/utils"
	"admithub/internal/validation"

	"go.uber.org/zap"
)

const (
	userCacheTTL       = 15 * time.Minute
	profilePhotoFolder = "admithub/profiles"
)

// userService implements UserService
type userService struct {
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	cache       cache.Cache
	events      events.EventBus
	storage     utils.FileStorage
	logger      *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	cache cache.Cache,
	events events.EventBus,
	storage utils.FileStorage,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		cache:       cache,
		events:      events,
		storage:     storage,
		logger:      logger,
	}
}

// GetUserByID retrieves a user by ID with caching
func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	cacheKey := fmt.Sprintf("user:%d", id)
	if cachedUser, found := s.cache.Get(ctx, cacheKey); found {
		if user, ok := cachedUser.(*models.User); ok {
			return user, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get user by ID", zap.Error(err), zap.Int64("user_id", id))
		return nil, NewInternalError("failed to retrieve user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	if err := s.cache.Set(ctx, cacheKey, user, userCacheTTL); err != nil {
		s.logger.Warn("Failed to cache user", zap.Error(err), zap.Int64("user_id", id))
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile updates the caller's profile fields
func (s *userService) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid profile update", err)
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		s.logger.Error("Failed to get user", zap.Error(err), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to retrieve user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	updated := false
	if req.FirstName != nil && *req.FirstName != user.FirstName {
		user.FirstName = *req.FirstName
		updated = true
	}
	if req.LastName != nil && *req.LastName != user.LastName {
		user.LastName = *req.LastName
		updated = true
	}
	if req.Phone != nil {
		user.Phone = req.Phone
		updated = true
	}
	if req.Address != nil {
		user.Address = req.Address
		updated = true
	}

	if updated {
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user", zap.Error(err), zap.Int64("user_id", req.UserID))
			return nil, NewInternalError("failed to update profile")
		}
		s.invalidateUser(ctx, req.UserID)
	}

	user.PasswordHash = ""
	return user, nil
}

// UploadProfilePhoto replaces the user's profile photo
func (s *userService) UploadProfilePhoto(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.User, error) {
	if file == nil {
		return nil, NewValidationError("photo file is required", nil)
	}
	if s.storage == nil {
		return nil, NewServiceUnavailableError("file storage is not configured")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to retrieve user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	if err := s.storage.ValidateFile(ctx, file); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	uploaded, err := s.storage.UploadFile(ctx, file, profilePhotoFolder)
	if err != nil {
		s.logger.Error("Failed to upload profile photo", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to upload photo")
	}

	if err := s.userRepo.UpdateProfilePhoto(ctx, userID, uploaded.URL, uploaded.PublicID); err != nil {
		s.logger.Error("Failed to save profile photo", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to save photo")
	}

	// Old photo is garbage once the new one is recorded
	if user.ProfilePublicID != nil && *user.ProfilePublicID != "" {
		if err := s.storage.DeleteFile(ctx, *user.ProfilePublicID); err != nil {
			s.logger.Warn("Failed to delete previous profile photo",
				zap.Error(err),
				zap.String("public_id", *user.ProfilePublicID),
			)
		}
	}

	if err := s.events.PublishAsync(ctx, events.NewFileUploadedEvent(userID, uploaded.PublicID, uploaded.URL, profilePhotoFolder)); err != nil {
		s.logger.Warn("Failed to publish file uploaded event", zap.Error(err))
	}

	s.invalidateUser(ctx, userID)
	return s.GetUserByID(ctx, userID)
}

// ===============================
// ADMIN OPERATIONS
// ===============================

// ListUsers returns a paginated user listing for admins
func (s *userService) ListUsers(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.User], error) {
	params.Normalize()

	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, NewInternalError("failed to list users")
	}

	for _, user := range users {
		user.PasswordHash = ""
	}

	return &models.PaginatedResponse[*models.User]{
		Data:       users,
		Pagination: models.NewPaginationMeta(params, total),
	}, nil
}

// UpdateRole changes a user's role
func (s *userService) UpdateRole(ctx context.Context, req *UpdateRoleRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid role request", err)
	}
	if req.UserID == req.ChangedBy {
		return nil, NewForbiddenError("cannot change your own role")
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, NewInternalError("failed to retrieve user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	if err := s.userRepo.UpdateRole(ctx, req.UserID, req.Role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to update role")
	}

	s.logger.Info("User role updated",
		zap.Int64("user_id", req.UserID),
		zap.String("old_role", user.Role),
		zap.String("new_role", req.Role),
		zap.Int64("changed_by", req.ChangedBy),
	)

	s.invalidateUser(ctx, req.UserID)
	return s.GetUserByID(ctx, req.UserID)
}

// DeleteUser removes an account, its sessions and its application
func (s *userService) DeleteUser(ctx context.Context, userID, deletedBy int64) error {
	if userID == deletedBy {
		return NewForbiddenError("cannot delete your own account")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return NewInternalError("failed to retrieve user")
	}
	if user == nil {
		return NewNotFoundError("user not found")
	}
	if user.Role == models.RoleSuperAdmin {
		return NewForbiddenError("super-admin accounts cannot be deleted")
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		s.logger.Warn("Failed to delete user sessions", zap.Error(err), zap.Int64("user_id", userID))
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		s.logger.Error("Failed to delete user", zap.Error(err), zap.Int64("user_id", userID))
		return NewInternalError("failed to delete user")
	}

	if err := s.events.PublishAsync(ctx, events.NewUserDeletedEvent(userID, user.Email, deletedBy)); err != nil {
		s.logger.Warn("Failed to publish user deleted event", zap.Error(err))
	}

	s.logger.Info("User deleted",
		zap.Int64("user_id", userID),
		zap.String("email", user.Email),
		zap.Int64("deleted_by", deletedBy),
	)

	s.invalidateUser(ctx, userID)
	return nil
}

func (s *userService) invalidateUser(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, fmt.Sprintf("user:%d", userID)); err != nil {
		s.logger.Debug("Failed to invalidate user cache", zap.Error(err), zap.Int64("user_id", userID))
	}
}
