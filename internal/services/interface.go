package services

import (
	"context"
	"mime/multipart"

	"admithub/internal/models"
	"admithub/internal/repositories"
)

// AuthService handles registration, login and session lifecycle
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, sessionToken string) error
}

// UserService handles applicant accounts and profiles
type UserService interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*models.User, error)
	UploadProfilePhoto(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.User, error)

	// Admin operations
	ListUsers(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.User], error)
	UpdateRole(ctx context.Context, req *UpdateRoleRequest) (*models.User, error)
	DeleteUser(ctx context.Context, userID, deletedBy int64) error
}

// ApplicationService handles the admissions form lifecycle
type ApplicationService interface {
	EnsureApplication(ctx context.Context, userID int64) (*models.Application, error)
	GetApplication(ctx context.Context, userID int64) (*models.Application, error)
	GetSections(ctx context.Context, userID int64) (*SectionsResponse, error)
	SaveSection(ctx context.Context, req *SaveSectionRequest) (*SaveSectionResult, error)
	SetCurrentSection(ctx context.Context, userID int64, section string) error
	SetSelectedPlan(ctx context.Context, userID int64, plan *models.SelectedPlan) (*models.Application, error)
	Submit(ctx context.Context, userID int64) (*models.Application, error)

	// Video operations
	UploadVideo(ctx context.Context, userID int64, file *multipart.FileHeader) (*VideoUploadResult, error)
	DeleteVideo(ctx context.Context, userID int64) (*models.Application, error)
	GetVideoInfo(ctx context.Context, userID int64) (*models.VideoInfo, error)

	// Admin operations
	ListApplications(ctx context.Context, filter *repositories.ApplicationFilter) (*models.PaginatedResponse[*models.Application], error)
	GetApplicationByID(ctx context.Context, id int64) (*models.Application, error)
	AdminSetStatus(ctx context.Context, req *SetStatusRequest) (*models.Application, error)
	DeleteApplication(ctx context.Context, id int64) error
	ComputeStats(ctx context.Context) (*models.ApplicationStats, error)
}

// EmailService sends applicant notifications
type EmailService interface {
	SendDecisionEmail(ctx context.Context, to, name string, status models.ApplicationStatus) error
}
