package repositories

import (
	"context"

	"admithub/internal/models"
)

// UserRepository manages applicant and staff accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateProfilePhoto(ctx context.Context, userID int64, url, publicID string) error
	UpdateRole(ctx context.Context, userID int64, role string) error
	UpdateLastSeen(ctx context.Context, userID int64) error

	// SetApplicationFlags refreshes the mirrored application state.
	SetApplicationFlags(ctx context.Context, userID int64, status models.ApplicationStatus, completed bool) error

	List(ctx context.Context, params models.PaginationParams) ([]*models.User, int64, error)
	Delete(ctx context.Context, id int64) error
}

// ApplicationFilter narrows admin application listings.
type ApplicationFilter struct {
	models.PaginationParams
	Status   string `schema:"status"`
	HasVideo *bool  `schema:"has_video"`
	Search   string `schema:"search"`
}

// ApplicationRepository manages admissions applications.
type ApplicationRepository interface {
	Create(ctx context.Context, userID int64) (*models.Application, error)
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Application, error)

	// MergeSection performs an atomic shallow merge of fields into the
	// named section's JSONB document and returns the updated row.
	MergeSection(ctx context.Context, userID int64, section string, fields models.SectionData) (*models.Application, error)

	SetCompletion(ctx context.Context, id int64, percentage int) error
	SetCurrentSection(ctx context.Context, userID int64, section string) error
	SetSelectedPlan(ctx context.Context, userID int64, plan *models.SelectedPlan) error
	SetVideoMetadata(ctx context.Context, userID int64, meta *models.VideoMetadata) error
	ClearVideo(ctx context.Context, userID int64) error

	// MarkInReviewIfDraft performs the one-shot automatic submit: it
	// stamps In Review and submittedAt only when the row is still Draft,
	// reporting whether this call made the transition.
	MarkInReviewIfDraft(ctx context.Context, userID int64) (bool, error)

	SetStatus(ctx context.Context, id int64, status models.ApplicationStatus, adminNotes *string, stampReviewed bool) (*models.Application, error)

	List(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteByUserID(ctx context.Context, userID int64) error
	Stats(ctx context.Context) (*models.ApplicationStats, error)
}

// SessionRepository manages login sessions backing issued JWTs.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, token string) error
	Deactivate(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}
