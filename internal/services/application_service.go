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
	applicationCacheTTL = 5 * time.Minute
	videoUploadFolder   = "admithub/applications/videos"
)

// applicationService implements ApplicationService
type applicationService struct {
	appRepo  repositories.ApplicationRepository
	userRepo repositories.UserRepository
	cache    cache.Cache
	events   events.EventBus
	storage  utils.FileStorage
	logger   *zap.Logger
}

// NewApplicationService creates a new application service
func NewApplicationService(
	appRepo repositories.ApplicationRepository,
	userRepo repositories.UserRepository,
	cache cache.Cache,
	events events.EventBus,
	storage utils.FileStorage,
	logger *zap.Logger,
) ApplicationService {
	return &applicationService{
		appRepo:  appRepo,
		userRepo: userRepo,
		cache:    cache,
		events:   events,
		storage:  storage,
		logger:   logger,
	}
}

// ===============================
// APPLICANT OPERATIONS
// ===============================

// EnsureApplication returns the caller's application, creating the row
// on first access. A concurrent first access loses the unique-index
// race and recovers by re-fetching the winner's row.
func (s *applicationService) EnsureApplication(ctx context.Context, userID int64) (*models.Application, error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	app, err := s.appRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get application", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to retrieve application")
	}
	if app != nil {
		return app, nil
	}

	app, err = s.appRepo.Create(ctx, userID)
	if err != nil {
		if repositories.IsUniqueViolation(err, "applications_user_id_key") {
			app, err = s.appRepo.GetByUserID(ctx, userID)
			if err != nil || app == nil {
				s.logger.Error("Failed to recover from create race", zap.Error(err), zap.Int64("user_id", userID))
				return nil, NewInternalError("failed to create application")
			}
			return app, nil
		}
		s.logger.Error("Failed to create application", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to create application")
	}

	if err := s.events.PublishAsync(ctx, events.NewApplicationCreatedEvent(app.ID, userID)); err != nil {
		s.logger.Warn("Failed to publish application created event", zap.Error(err), zap.Int64("user_id", userID))
	}

	s.logger.Info("Application created",
		zap.Int64("application_id", app.ID),
		zap.Int64("user_id", userID),
	)
	return app, nil
}

// GetApplication returns the caller's application with video payloads masked
func (s *applicationService) GetApplication(ctx context.Context, userID int64) (*models.Application, error) {
	app, err := s.EnsureApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	masked := *app
	masked.Optional = models.MaskSectionData(models.SectionOptional, app.Optional)
	return &masked, nil
}

// GetSections returns the full form state with question prompts and
// saved answers, video payloads masked.
func (s *applicationService) GetSections(ctx context.Context, userID int64) (*SectionsResponse, error) {
	app, err := s.EnsureApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	completion := app.Completion()

	resp := &SectionsResponse{
		CurrentSection:       app.CurrentSection,
		Status:               app.Status,
		CompletionPercentage: completion.Percentage,
		IsComplete:           completion.Complete,
		SelectedPlan:         app.SelectedPlan,
		SubmittedAt:          app.SubmittedAt,
	}

	for _, name := range models.SectionNames {
		spec, _ := models.GetSectionSpec(name)
		data := models.MaskSectionData(name, app.Section(name))

		// The optional section always reads complete
		view := SectionView{
			Name:       name,
			IsComplete: models.SectionComplete(name, app.Section(name)),
		}
		for _, f := range spec.Fields {
			view.Fields = append(view.Fields, FieldView{
				Key:      f.Key,
				Question: f.Question,
				Required: f.Required,
				Answer:   data[f.Key],
			})
		}
		resp.Sections = append(resp.Sections, view)
	}

	return resp, nil
}

// SaveSection validates and atomically merges a partial section update,
// recomputes completion and applies the automatic Draft transition.
func (s *applicationService) SaveSection(ctx context.Context, req *SaveSectionRequest) (*SaveSectionResult, error) {
	if req.UserID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}
	if len(req.Data) == 0 {
		return nil, NewValidationError("no fields to save", nil)
	}

	if err := models.ValidateSectionPayload(req.Section, req.Data); err != nil {
		if fieldErr, ok := err.(*models.FieldError); ok {
			return nil, NewDetailedValidationError("section payload is invalid", []FieldError{{
				Field:   fmt.Sprintf("%s.%s", fieldErr.Section, fieldErr.Field),
				Message: fieldErr.Message,
				Code:    "INVALID_FIELD",
			}})
		}
		return nil, NewValidationError("section payload is invalid", err)
	}

	// The row must exist before the merge can land
	if _, err := s.EnsureApplication(ctx, req.UserID); err != nil {
		return nil, err
	}

	app, err := s.appRepo.MergeSection(ctx, req.UserID, req.Section, models.SectionData(req.Data))
	if err != nil {
		s.logger.Error("Failed to merge section",
			zap.Error(err),
			zap.Int64("user_id", req.UserID),
			zap.String("section", req.Section),
		)
		return nil, NewInternalError("failed to save section")
	}
	if app == nil {
		// Deleted between the ensure and the merge
		return nil, NewNotFoundError("application not found")
	}

	result := &SaveSectionResult{
		Section: models.MaskSectionData(req.Section, app.Section(req.Section)),
		Status:  app.Status,
	}

	// A raw video payload in the optional section yields derived metadata
	if req.Section == models.SectionOptional {
		if payload, ok := req.Data["videoRecording"].(string); ok && models.IsVideoDataURI(payload) {
			meta := models.DeriveVideoMetadata(payload, time.Now())
			if err := s.appRepo.SetVideoMetadata(ctx, req.UserID, meta); err != nil {
				s.logger.Warn("Failed to persist video metadata", zap.Error(err), zap.Int64("user_id", req.UserID))
			} else {
				app.VideoMetadata = meta
				if err := s.events.PublishAsync(ctx, events.NewVideoUploadedEvent(app.ID, req.UserID, meta.Format, meta.Size)); err != nil {
					s.logger.Warn("Failed to publish video uploaded event", zap.Error(err))
				}
			}
		}
		info := app.GetVideoInfo()
		result.VideoInfo = &info
	}

	completion := app.Completion()
	result.CompletionPercentage = completion.Percentage
	result.RequiredSectionsComplete = completion.Complete
	result.SectionsComplete = completion.SectionsComplete

	if err := s.appRepo.SetCompletion(ctx, app.ID, completion.Percentage); err != nil {
		s.logger.Warn("Failed to persist completion percentage",
			zap.Error(err),
			zap.Int64("application_id", app.ID),
		)
	}

	if err := s.events.PublishAsync(ctx, events.NewSectionSavedEvent(app.ID, req.UserID, req.Section, completion.Percentage)); err != nil {
		s.logger.Warn("Failed to publish section saved event", zap.Error(err), zap.Int64("user_id", req.UserID))
	}

	if completion.Complete && app.Status == models.StatusDraft {
		transitioned, err := s.appRepo.MarkInReviewIfDraft(ctx, req.UserID)
		if err != nil {
			s.logger.Error("Failed to auto-submit application", zap.Error(err), zap.Int64("user_id", req.UserID))
		} else if transitioned {
			result.Status = models.StatusInReview
			result.AutoSubmitted = true
			s.publishSubmitted(ctx, app, req.UserID, true)
			s.logger.Info("Application auto-submitted",
				zap.Int64("application_id", app.ID),
				zap.Int64("user_id", req.UserID),
			)
		}
	}

	s.mirrorUserFlags(ctx, req.UserID, result.Status, completion.Complete)
	s.invalidateCache(ctx, req.UserID)

	return result, nil
}

// SetCurrentSection persists the applicant's place in the form
func (s *applicationService) SetCurrentSection(ctx context.Context, userID int64, section string) error {
	if _, ok := models.GetSectionSpec(section); !ok {
		return NewValidationError(fmt.Sprintf("unknown section %q", section), nil)
	}

	if _, err := s.EnsureApplication(ctx, userID); err != nil {
		return err
	}

	if err := s.appRepo.SetCurrentSection(ctx, userID, section); err != nil {
		s.logger.Error("Failed to set current section", zap.Error(err), zap.Int64("user_id", userID))
		return NewInternalError("failed to save current section")
	}

	s.invalidateCache(ctx, userID)
	return nil
}

// SetSelectedPlan persists the applicant's chosen plan
func (s *applicationService) SetSelectedPlan(ctx context.Context, userID int64, plan *models.SelectedPlan) (*models.Application, error) {
	if plan == nil || plan.ID == "" || plan.Name == "" {
		return nil, NewValidationError("plan id and name are required", nil)
	}
	if plan.Price < 0 {
		return nil, NewValidationError("plan price cannot be negative", nil)
	}

	if _, err := s.EnsureApplication(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.appRepo.SetSelectedPlan(ctx, userID, plan); err != nil {
		s.logger.Error("Failed to set selected plan", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to save selected plan")
	}

	s.invalidateCache(ctx, userID)
	return s.GetApplication(ctx, userID)
}

// Submit explicitly moves a complete application into review. An
// incomplete application fails with NOT_COMPLETE carrying the current
// completion snapshot.
func (s *applicationService) Submit(ctx context.Context, userID int64) (*models.Application, error) {
	app, err := s.EnsureApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	completion := app.Completion()
	if !completion.Complete {
		return nil, NewNotCompleteError(
			"application is not complete",
			completion.Percentage,
			completion.SectionsComplete,
		)
	}

	if app.Status == models.StatusDraft {
		transitioned, err := s.appRepo.MarkInReviewIfDraft(ctx, userID)
		if err != nil {
			s.logger.Error("Failed to submit application", zap.Error(err), zap.Int64("user_id", userID))
			return nil, NewInternalError("failed to submit application")
		}
		if transitioned {
			s.publishSubmitted(ctx, app, userID, false)
		}
	}

	s.invalidateCache(ctx, userID)

	updated, err := s.GetApplication(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.mirrorUserFlags(ctx, userID, updated.Status, true)
	return updated, nil
}

// ===============================
// VIDEO OPERATIONS
// ===============================

// UploadVideo stores a recorded video and records its metadata
func (s *applicationService) UploadVideo(ctx context.Context, userID int64, file *multipart.FileHeader) (*VideoUploadResult, error) {
	if file == nil {
		return nil, NewValidationError("video file is required", nil)
	}
	if s.storage == nil {
		return nil, NewServiceUnavailableError("file storage is not configured")
	}

	app, err := s.EnsureApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.storage.ValidateFile(ctx, file); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	uploaded, err := s.storage.UploadFile(ctx, file, videoUploadFolder)
	if err != nil {
		s.logger.Error("Failed to upload video", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to upload video")
	}

	if _, err := s.appRepo.MergeSection(ctx, userID, models.SectionOptional, models.SectionData{
		"videoUrl": uploaded.URL,
	}); err != nil {
		s.logger.Error("Failed to store video URL", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to save video")
	}

	format := uploaded.Format
	if format == "" {
		format = "webm"
	}
	now := time.Now()
	meta := &models.VideoMetadata{
		Size:       int64(uploaded.Size),
		Format:     format,
		RecordedAt: &now,
	}
	if err := s.appRepo.SetVideoMetadata(ctx, userID, meta); err != nil {
		s.logger.Warn("Failed to persist video metadata", zap.Error(err), zap.Int64("user_id", userID))
	}

	if err := s.events.PublishAsync(ctx, events.NewVideoUploadedEvent(app.ID, userID, format, meta.Size)); err != nil {
		s.logger.Warn("Failed to publish video uploaded event", zap.Error(err))
	}
	if err := s.events.PublishAsync(ctx, events.NewFileUploadedEvent(userID, uploaded.PublicID, uploaded.URL, videoUploadFolder)); err != nil {
		s.logger.Warn("Failed to publish file uploaded event", zap.Error(err))
	}

	s.invalidateCache(ctx, userID)

	return &VideoUploadResult{
		URL:      uploaded.URL,
		PublicID: uploaded.PublicID,
		VideoInfo: &models.VideoInfo{
			HasVideo: true,
			HasURL:   true,
			Metadata: meta,
		},
		Metadata: meta,
	}, nil
}

// DeleteVideo removes both recording payload and URL from the application
func (s *applicationService) DeleteVideo(ctx context.Context, userID int64) (*models.Application, error) {
	app, err := s.appRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get application", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to retrieve application")
	}
	if app == nil {
		return nil, NewNotFoundError("application not found")
	}

	info := app.GetVideoInfo()
	if !info.HasVideo {
		return nil, NewNotFoundError("no video on application")
	}

	if err := s.appRepo.ClearVideo(ctx, userID); err != nil {
		s.logger.Error("Failed to clear video", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to delete video")
	}

	if err := s.events.PublishAsync(ctx, events.NewVideoDeletedEvent(app.ID, userID)); err != nil {
		s.logger.Warn("Failed to publish video deleted event", zap.Error(err))
	}

	s.invalidateCache(ctx, userID)
	return s.GetApplication(ctx, userID)
}

// GetVideoInfo reports the application's video state without payloads
func (s *applicationService) GetVideoInfo(ctx context.Context, userID int64) (*models.VideoInfo, error) {
	app, err := s.EnsureApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := app.GetVideoInfo()
	return &info, nil
}

// ===============================
// ADMIN OPERATIONS
// ===============================

// ListApplications returns a filtered admin listing
func (s *applicationService) ListApplications(ctx context.Context, filter *repositories.ApplicationFilter) (*models.PaginatedResponse[*models.Application], error) {
	if filter == nil {
		filter = &repositories.ApplicationFilter{}
	}
	filter.Normalize()

	if filter.Status != "" && !models.IsValidStatus(models.ApplicationStatus(filter.Status)) {
		return nil, NewValidationError(fmt.Sprintf("invalid status %q", filter.Status), nil)
	}

	apps, total, err := s.appRepo.List(ctx, *filter)
	if err != nil {
		s.logger.Error("Failed to list applications", zap.Error(err))
		return nil, NewInternalError("failed to list applications")
	}

	for _, app := range apps {
		app.Optional = models.MaskSectionData(models.SectionOptional, app.Optional)
	}

	return &models.PaginatedResponse[*models.Application]{
		Data:       apps,
		Pagination: models.NewPaginationMeta(filter.PaginationParams, total),
	}, nil
}

// GetApplicationByID returns one application with applicant identity joined
func (s *applicationService) GetApplicationByID(ctx context.Context, id int64) (*models.Application, error) {
	if id <= 0 {
		return nil, NewValidationError("invalid application ID", nil)
	}

	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get application", zap.Error(err), zap.Int64("application_id", id))
		return nil, NewInternalError("failed to retrieve application")
	}
	if app == nil {
		return nil, NewNotFoundError("application not found")
	}

	app.Optional = models.MaskSectionData(models.SectionOptional, app.Optional)
	return app, nil
}

// AdminSetStatus applies an admin decision. Any of the five states may
// be assigned; leaving Draft stamps reviewedAt.
func (s *applicationService) AdminSetStatus(ctx context.Context, req *SetStatusRequest) (*models.Application, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid status request", err)
	}

	newStatus := models.ApplicationStatus(req.Status)
	if !models.IsValidStatus(newStatus) {
		return nil, NewValidationError(fmt.Sprintf("invalid status %q", req.Status), nil)
	}

	current, err := s.appRepo.GetByID(ctx, req.ApplicationID)
	if err != nil {
		s.logger.Error("Failed to get application", zap.Error(err), zap.Int64("application_id", req.ApplicationID))
		return nil, NewInternalError("failed to retrieve application")
	}
	if current == nil {
		return nil, NewNotFoundError("application not found")
	}

	oldStatus := current.Status
	stampReviewed := newStatus != models.StatusDraft

	app, err := s.appRepo.SetStatus(ctx, req.ApplicationID, newStatus, req.AdminNotes, stampReviewed)
	if err != nil {
		s.logger.Error("Failed to set application status",
			zap.Error(err),
			zap.Int64("application_id", req.ApplicationID),
			zap.String("status", req.Status),
		)
		return nil, NewInternalError("failed to update application status")
	}
	if app == nil {
		// Deleted between the read and the update
		return nil, NewNotFoundError("application not found")
	}

	s.mirrorUserFlags(ctx, app.UserID, newStatus, app.IsComplete())

	if oldStatus != newStatus {
		event := events.NewApplicationStatusChangedEvent(
			app.ID, app.UserID, current.ApplicantEmail, oldStatus, newStatus, req.ChangedBy,
		)
		if err := s.events.PublishAsync(ctx, event); err != nil {
			s.logger.Warn("Failed to publish status changed event", zap.Error(err))
		}
	}

	s.invalidateCache(ctx, app.UserID)

	s.logger.Info("Application status updated",
		zap.Int64("application_id", app.ID),
		zap.String("old_status", oldStatus.String()),
		zap.String("new_status", newStatus.String()),
		zap.Int64("changed_by", req.ChangedBy),
	)

	app.Optional = models.MaskSectionData(models.SectionOptional, app.Optional)
	return app, nil
}

// DeleteApplication removes an application entirely
func (s *applicationService) DeleteApplication(ctx context.Context, id int64) error {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return NewInternalError("failed to retrieve application")
	}
	if app == nil {
		return NewNotFoundError("application not found")
	}

	if err := s.appRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete application", zap.Error(err), zap.Int64("application_id", id))
		return NewInternalError("failed to delete application")
	}

	// The applicant starts over with a fresh Draft on next access
	s.mirrorUserFlags(ctx, app.UserID, models.StatusDraft, false)
	s.invalidateCache(ctx, app.UserID)

	return nil
}

// ComputeStats aggregates admissions numbers, briefly cached
func (s *applicationService) ComputeStats(ctx context.Context) (*models.ApplicationStats, error) {
	const cacheKey = "applications:stats"

	if cached, found := s.cache.Get(ctx, cacheKey); found {
		if stats, ok := cached.(*models.ApplicationStats); ok {
			return stats, nil
		}
	}

	stats, err := s.appRepo.Stats(ctx)
	if err != nil {
		s.logger.Error("Failed to compute application stats", zap.Error(err))
		return nil, NewInternalError("failed to compute stats")
	}

	if err := s.cache.Set(ctx, cacheKey, stats, time.Minute); err != nil {
		s.logger.Warn("Failed to cache stats", zap.Error(err))
	}

	return stats, nil
}

// ===============================
// HELPERS
// ===============================

// publishSubmitted emits the submitted event with the applicant's email attached
func (s *applicationService) publishSubmitted(ctx context.Context, app *models.Application, userID int64, auto bool) {
	email := app.ApplicantEmail
	if email == "" {
		if user, err := s.userRepo.GetByID(ctx, userID); err == nil && user != nil {
			email = user.Email
		}
	}

	if err := s.events.PublishAsync(ctx, events.NewApplicationSubmittedEvent(app.ID, userID, email, auto)); err != nil {
		s.logger.Warn("Failed to publish application submitted event", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// mirrorUserFlags refreshes the denormalized status on the user row.
// Failures are logged and never fail the calling operation.
func (s *applicationService) mirrorUserFlags(ctx context.Context, userID int64, status models.ApplicationStatus, completed bool) {
	if err := s.userRepo.SetApplicationFlags(ctx, userID, status, completed); err != nil {
		s.logger.Warn("Failed to mirror application flags",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("status", status.String()),
		)
	}
}

func (s *applicationService) invalidateCache(ctx context.Context, userID int64) {
	keys := []string{
		fmt.Sprintf("application:user:%d", userID),
		"applications:stats",
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Debug("Failed to invalidate cache", zap.Error(err), zap.String("key", key))
		}
	}
}
