package users

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"admithub/internal/middleware"
	"admithub/internal/response"
	"admithub/internal/services"

	"go.uber.org/zap"
)

const maxPhotoUploadBytes = 20 << 20

// UsersController handles profile API endpoints
type UsersController struct {
	services        *services.ServiceCollection
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewUsersController creates a new users controller
func NewUsersController(
	sc *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *UsersController {
	return &UsersController{
		services:        sc,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// GetMe returns the authenticated user's profile - GET /api/v1/users/me
func (c *UsersController) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	user, err := c.services.UserService.GetUserByID(ctx, userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, user)
}

// UpdateProfile updates the authenticated user's profile - PATCH /api/v1/users/me
func (c *UsersController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "update_profile")

	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	req.UserID = userID

	user, err := c.services.UserService.UpdateProfile(ctx, &req)
	if err != nil {
		logger.Warn("Profile update failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Profile updated", zap.Int64("user_id", userID))
	c.responseBuilder.WriteSuccess(w, r, user)
}

// UploadPhoto replaces the authenticated user's profile photo - POST /api/v1/users/me/photo
func (c *UsersController) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "upload_photo")

	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		logger.Warn("Invalid multipart form", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid upload form", err))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		logger.Warn("Missing photo file", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("photo file is required", err))
		return
	}
	defer file.Close()

	user, err := c.services.UserService.UploadProfilePhoto(ctx, userID, header)
	if err != nil {
		logger.Warn("Photo upload failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Profile photo uploaded", zap.Int64("user_id", userID))
	c.responseBuilder.WriteSuccess(w, r, user)
}

func (c *UsersController) requestLogger(r *http.Request, endpoint string) *zap.Logger {
	return c.logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("endpoint", endpoint),
	)
}
