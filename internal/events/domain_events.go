package events

import (
	"admithub/internal/models"
)

// ===============================
// EVENT TYPES
// ===============================

const (
	EventTypeApplicationCreated   = "application.created"
	EventTypeSectionSaved         = "application.section_saved"
	EventTypeApplicationSubmitted = "application.submitted"
	EventTypeStatusChanged        = "application.status_changed"
	EventTypeVideoUploaded        = "application.video_uploaded"
	EventTypeVideoDeleted         = "application.video_deleted"

	EventTypeUserRegistered = "user.registered"
	EventTypeUserLoggedIn   = "user.logged_in"
	EventTypeUserDeleted    = "user.deleted"

	EventTypeFileUploaded = "file.uploaded"
)

// ===============================
// APPLICATION EVENTS
// ===============================

// ApplicationCreatedEvent fires when an application row is first created
type ApplicationCreatedEvent struct {
	BaseEvent
	ApplicationID int64 `json:"application_id"`
}

func NewApplicationCreatedEvent(applicationID, userID int64) *ApplicationCreatedEvent {
	return &ApplicationCreatedEvent{
		BaseEvent:     newBaseEvent(EventTypeApplicationCreated, &userID),
		ApplicationID: applicationID,
	}
}

// SectionSavedEvent fires after a section merge persists
type SectionSavedEvent struct {
	BaseEvent
	ApplicationID        int64  `json:"application_id"`
	Section              string `json:"section"`
	CompletionPercentage int    `json:"completion_percentage"`
}

func NewSectionSavedEvent(applicationID, userID int64, section string, completion int) *SectionSavedEvent {
	return &SectionSavedEvent{
		BaseEvent:            newBaseEvent(EventTypeSectionSaved, &userID),
		ApplicationID:        applicationID,
		Section:              section,
		CompletionPercentage: completion,
	}
}

// ApplicationSubmittedEvent fires when an application moves out of draft
type ApplicationSubmittedEvent struct {
	BaseEvent
	ApplicationID  int64  `json:"application_id"`
	ApplicantEmail string `json:"applicant_email"`
	AutoSubmitted  bool   `json:"auto_submitted"`
}

func NewApplicationSubmittedEvent(applicationID, userID int64, email string, auto bool) *ApplicationSubmittedEvent {
	return &ApplicationSubmittedEvent{
		BaseEvent:      newBaseEvent(EventTypeApplicationSubmitted, &userID),
		ApplicationID:  applicationID,
		ApplicantEmail: email,
		AutoSubmitted:  auto,
	}
}

// ApplicationStatusChangedEvent fires on an admin decision
type ApplicationStatusChangedEvent struct {
	BaseEvent
	ApplicationID  int64                    `json:"application_id"`
	ApplicantEmail string                   `json:"applicant_email"`
	OldStatus      models.ApplicationStatus `json:"old_status"`
	NewStatus      models.ApplicationStatus `json:"new_status"`
	ChangedBy      int64                    `json:"changed_by"`
}

func NewApplicationStatusChangedEvent(applicationID, userID int64, email string, oldStatus, newStatus models.ApplicationStatus, changedBy int64) *ApplicationStatusChangedEvent {
	return &ApplicationStatusChangedEvent{
		BaseEvent:      newBaseEvent(EventTypeStatusChanged, &userID),
		ApplicationID:  applicationID,
		ApplicantEmail: email,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		ChangedBy:      changedBy,
	}
}

// VideoUploadedEvent fires after video metadata is recorded
type VideoUploadedEvent struct {
	BaseEvent
	ApplicationID int64  `json:"application_id"`
	Format        string `json:"format"`
	Size          int64  `json:"size"`
}

func NewVideoUploadedEvent(applicationID, userID int64, format string, size int64) *VideoUploadedEvent {
	return &VideoUploadedEvent{
		BaseEvent:     newBaseEvent(EventTypeVideoUploaded, &userID),
		ApplicationID: applicationID,
		Format:        format,
		Size:          size,
	}
}

// VideoDeletedEvent fires after a video is removed from an application
type VideoDeletedEvent struct {
	BaseEvent
	ApplicationID int64 `json:"application_id"`
}

func NewVideoDeletedEvent(applicationID, userID int64) *VideoDeletedEvent {
	return &VideoDeletedEvent{
		BaseEvent:     newBaseEvent(EventTypeVideoDeleted, &userID),
		ApplicationID: applicationID,
	}
}

// ===============================
// USER EVENTS
// ===============================

// UserRegisteredEvent fires when a new account is created
type UserRegisteredEvent struct {
	BaseEvent
	Email string `json:"email"`
}

func NewUserRegisteredEvent(userID int64, email string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseEvent: newBaseEvent(EventTypeUserRegistered, &userID),
		Email:     email,
	}
}

// UserLoggedInEvent fires on successful authentication
type UserLoggedInEvent struct {
	BaseEvent
	Email string `json:"email"`
}

func NewUserLoggedInEvent(userID int64, email string) *UserLoggedInEvent {
	return &UserLoggedInEvent{
		BaseEvent: newBaseEvent(EventTypeUserLoggedIn, &userID),
		Email:     email,
	}
}

// UserDeletedEvent fires when an account and its application are removed
type UserDeletedEvent struct {
	BaseEvent
	Email     string `json:"email"`
	DeletedBy int64  `json:"deleted_by"`
}

func NewUserDeletedEvent(userID int64, email string, deletedBy int64) *UserDeletedEvent {
	return &UserDeletedEvent{
		BaseEvent: newBaseEvent(EventTypeUserDeleted, &userID),
		Email:     email,
		DeletedBy: deletedBy,
	}
}

// ===============================
// FILE EVENTS
// ===============================

// FileUploadedEvent fires after a successful Cloudinary upload
type FileUploadedEvent struct {
	BaseEvent
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
	Folder   string `json:"folder"`
}

func NewFileUploadedEvent(userID int64, publicID, url, folder string) *FileUploadedEvent {
	return &FileUploadedEvent{
		BaseEvent: newBaseEvent(EventTypeFileUploaded, &userID),
		PublicID:  publicID,
		URL:       url,
		Folder:    folder,
	}
}
