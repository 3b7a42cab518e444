package applications

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"admithub/internal/middleware"
	"admithub/internal/models"
	"admithub/internal/response"
	"admithub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxVideoUploadBytes = 120 << 20

// ApplicationsController handles applicant-facing application endpoints
type ApplicationsController struct {
	services        *services.ServiceCollection
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewApplicationsController creates a new applications controller
func NewApplicationsController(
	sc *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *ApplicationsController {
	return &ApplicationsController{
		services:        sc,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// ===============================
// APPLICATION ENDPOINTS
// ===============================

// GetApplication returns the caller's application, creating it on first
// access - GET /api/v1/applications/me
func (c *ApplicationsController) GetApplication(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	app, err := c.services.ApplicationService.EnsureApplication(ctx, userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, app)
}

// GetSections returns the structured form view - GET /api/v1/applications/me/sections
func (c *ApplicationsController) GetSections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	sections, err := c.services.ApplicationService.GetSections(ctx, userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, sections)
}

// SaveSection merges fields into one section - PATCH /api/v1/applications/me/sections/{section}
func (c *ApplicationsController) SaveSection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "save_section")

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	section := chi.URLParam(r, "section")

	var req services.SaveSectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	req.UserID = userID
	req.Section = section

	result, err := c.services.ApplicationService.SaveSection(ctx, &req)
	if err != nil {
		logger.Warn("Section save failed",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("section", section),
		)
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Section saved",
		zap.Int64("user_id", userID),
		zap.String("section", section),
		zap.Int("completion", result.CompletionPercentage),
		zap.Bool("auto_submitted", result.AutoSubmitted),
	)

	c.responseBuilder.WriteSuccess(w, r, result)
}

// SetCurrentSection records form navigation state - PUT /api/v1/applications/me/current-section
func (c *ApplicationsController) SetCurrentSection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Section string `json:"section"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	if err := c.services.ApplicationService.SetCurrentSection(ctx, userID, req.Section); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, map[string]string{"currentSection": req.Section})
}

// SetSelectedPlan records the applicant's plan choice - PUT /api/v1/applications/me/plan
func (c *ApplicationsController) SetSelectedPlan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	var plan models.SelectedPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	app, err := c.services.ApplicationService.SetSelectedPlan(ctx, userID, &plan)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, app)
}

// Submit submits a complete application for review - POST /api/v1/applications/me/submit
func (c *ApplicationsController) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "submit")

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	app, err := c.services.ApplicationService.Submit(ctx, userID)
	if err != nil {
		logger.Warn("Submission failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Application submitted",
		zap.Int64("user_id", userID),
		zap.String("status", app.Status.String()),
	)

	c.responseBuilder.WriteSuccess(w, r, app)
}

// ===============================
// VIDEO ENDPOINTS
// ===============================

// UploadVideo stores a recorded video - POST /api/v1/applications/me/video
func (c *ApplicationsController) UploadVideo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "upload_video")

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		logger.Warn("Invalid multipart form", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid upload form", err))
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		logger.Warn("Missing video file", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("video file is required", err))
		return
	}
	defer file.Close()

	result, err := c.services.ApplicationService.UploadVideo(ctx, userID, header)
	if err != nil {
		logger.Warn("Video upload failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Video uploaded",
		zap.Int64("user_id", userID),
		zap.String("public_id", result.PublicID),
	)

	c.responseBuilder.WriteCreated(w, r, result)
}

// DeleteVideo removes the stored video - DELETE /api/v1/applications/me/video
func (c *ApplicationsController) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	logger := c.requestLogger(r, "delete_video")

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	app, err := c.services.ApplicationService.DeleteVideo(ctx, userID)
	if err != nil {
		logger.Warn("Video delete failed", zap.Error(err), zap.Int64("user_id", userID))
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	logger.Info("Video deleted", zap.Int64("user_id", userID))
	c.responseBuilder.WriteSuccess(w, r, app)
}

// GetVideoInfo reports video state without payloads - GET /api/v1/applications/me/video
func (c *ApplicationsController) GetVideoInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := c.authenticatedUser(w, r)
	if !ok {
		return
	}

	info, err := c.services.ApplicationService.GetVideoInfo(ctx, userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, info)
}

// ===============================
// HELPER METHODS
// ===============================

func (c *ApplicationsController) authenticatedUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return 0, false
	}
	return userID, true
}

func (c *ApplicationsController) requestLogger(r *http.Request, endpoint string) *zap.Logger {
	return c.logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("endpoint", endpoint),
	)
}
