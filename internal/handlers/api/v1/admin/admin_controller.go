package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"admithub/internal/middleware"
	"admithub/internal/models"
	"admithub/internal/repositories"
	"admithub/internal/response"
	"admithub/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

// AdminController handles administrative API endpoints
type AdminController struct {
	services        *services.ServiceCollection
	logger          *zap.Logger
	responseBuilder *response.Builder
	queryDecoder    *schema.Decoder
}

// NewAdminController creates a new admin controller
func NewAdminController(
	sc *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AdminController {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &AdminController{
		services:        sc,
		logger:          logger,
		responseBuilder: responseBuilder,
		queryDecoder:    decoder,
	}
}

// ===============================
// USER MANAGEMENT
// ===============================

// ListUsers returns a paginated user listing - GET /api/v1/admin/users
func (c *AdminController) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var params models.PaginationParams
	if err := c.queryDecoder.Decode(&params, r.URL.Query()); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid query parameters", err))
		return
	}

	result, err := c.services.UserService.ListUsers(ctx, params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// UpdateUserRole changes a user's role - PUT /api/v1/admin/users/{id}/role
func (c *AdminController) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "update_user_role")

	userID, err := c.pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid user ID", err))
		return
	}

	var req services.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	req.UserID = userID
	req.ChangedBy = middleware.GetUserID(r.Context())

	user, err := c.services.UserService.UpdateRole(ctx, &req)
	if err != nil {
		logger.Warn("Role update failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("User role updated",
		zap.Int64("user_id", userID),
		zap.String("role", req.Role),
		zap.Int64("changed_by", req.ChangedBy),
	)

	c.responseBuilder.WriteSuccess(w, r, user)
}

// DeleteUser removes a user account - DELETE /api/v1/admin/users/{id}
func (c *AdminController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "delete_user")

	userID, err := c.pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid user ID", err))
		return
	}

	deletedBy := middleware.GetUserID(r.Context())
	if err := c.services.UserService.DeleteUser(ctx, userID, deletedBy); err != nil {
		logger.Warn("User delete failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("User deleted",
		zap.Int64("user_id", userID),
		zap.Int64("deleted_by", deletedBy),
	)

	c.responseBuilder.WriteNoContent(w, r)
}

// ===============================
// APPLICATION MANAGEMENT
// ===============================

// ListApplications returns filtered applications - GET /api/v1/admin/applications
func (c *AdminController) ListApplications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var filter repositories.ApplicationFilter
	if err := c.queryDecoder.Decode(&filter, r.URL.Query()); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid query parameters", err))
		return
	}

	result, err := c.services.ApplicationService.ListApplications(ctx, &filter)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// GetApplication returns one application by ID - GET /api/v1/admin/applications/{id}
func (c *AdminController) GetApplication(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	appID, err := c.pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid application ID", err))
		return
	}

	app, err := c.services.ApplicationService.GetApplicationByID(ctx, appID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, app)
}

// SetApplicationStatus assigns a review decision - PUT /api/v1/admin/applications/{id}/status
func (c *AdminController) SetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "set_application_status")

	appID, err := c.pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid application ID", err))
		return
	}

	var req services.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	req.ApplicationID = appID
	req.ChangedBy = middleware.GetUserID(r.Context())

	app, err := c.services.ApplicationService.AdminSetStatus(ctx, &req)
	if err != nil {
		logger.Warn("Status change failed",
			zap.Error(err),
			zap.Int64("application_id", appID),
			zap.String("status", req.Status),
		)
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Application status changed",
		zap.Int64("application_id", appID),
		zap.String("status", req.Status),
		zap.Int64("changed_by", req.ChangedBy),
	)

	c.responseBuilder.WriteSuccess(w, r, app)
}

// DeleteApplication removes an application - DELETE /api/v1/admin/applications/{id}
func (c *AdminController) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "delete_application")

	appID, err := c.pathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid application ID", err))
		return
	}

	if err := c.services.ApplicationService.DeleteApplication(ctx, appID); err != nil {
		logger.Warn("Application delete failed", zap.Error(err), zap.Int64("application_id", appID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Application deleted",
		zap.Int64("application_id", appID),
		zap.Int64("deleted_by", middleware.GetUserID(r.Context())),
	)

	c.responseBuilder.WriteNoContent(w, r)
}

// GetStats reports aggregate application statistics - GET /api/v1/admin/applications/stats
func (c *AdminController) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	stats, err := c.services.ApplicationService.ComputeStats(ctx)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, stats)
}

// ===============================
// HELPER METHODS
// ===============================

func (c *AdminController) pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive")
	}
	return id, nil
}

func (c *AdminController) requestLogger(r *http.Request, endpoint string) *zap.Logger {
	return c.logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("endpoint", endpoint),
	)
}
