package services

import (
	"time"

	"admithub/internal/models"
)

// ===============================
// AUTH TYPES
// ===============================

// RegisterRequest represents a new account registration
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the authenticated user and issued credentials
type AuthResponse struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	SessionToken string       `json:"sessionToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// ===============================
// USER TYPES
// ===============================

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	UserID    int64   `json:"-"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// UpdateRoleRequest represents an admin role change
type UpdateRoleRequest struct {
	UserID    int64  `json:"-"`
	Role      string `json:"role" validate:"required,oneof=user admin super-admin"`
	ChangedBy int64  `json:"-"`
}

// ===============================
// APPLICATION TYPES
// ===============================

// SaveSectionRequest represents a section save
type SaveSectionRequest struct {
	UserID  int64                  `json:"-"`
	Section string                 `json:"-"`
	Data    map[string]interface{} `json:"data" validate:"required"`
}

// SaveSectionResult is the snapshot returned after a section save. Section
// holds the merged section data with video payloads masked;
// RequiredSectionsComplete is true once all required fields are answered.
type SaveSectionResult struct {
	Section                  models.SectionData       `json:"section"`
	CompletionPercentage     int                      `json:"completionPercentage"`
	RequiredSectionsComplete bool                     `json:"requiredSectionsComplete"`
	SectionsComplete         map[string]bool          `json:"sectionsComplete"`
	Status                   models.ApplicationStatus `json:"status"`
	AutoSubmitted            bool                     `json:"autoSubmitted,omitempty"`
	VideoInfo                *models.VideoInfo        `json:"videoInfo,omitempty"`
}

// FieldView describes one question with its saved answer
type FieldView struct {
	Key      string      `json:"key"`
	Question string      `json:"question,omitempty"`
	Required bool        `json:"required"`
	Answer   interface{} `json:"answer,omitempty"`
}

// SectionView describes one section of the form
type SectionView struct {
	Name       string      `json:"name"`
	IsComplete bool        `json:"isComplete"`
	Fields     []FieldView `json:"fields"`
}

// SectionsResponse is the full form state for an applicant
type SectionsResponse struct {
	Sections             []SectionView            `json:"sections"`
	CurrentSection       string                   `json:"currentSection,omitempty"`
	Status               models.ApplicationStatus `json:"status"`
	CompletionPercentage int                      `json:"completionPercentage"`
	IsComplete           bool                     `json:"isComplete"`
	SelectedPlan         *models.SelectedPlan     `json:"selectedPlan,omitempty"`
	SubmittedAt          *time.Time               `json:"submittedAt,omitempty"`
}

// SetStatusRequest represents an admin status decision
type SetStatusRequest struct {
	ApplicationID int64   `json:"-"`
	Status        string  `json:"status" validate:"required"`
	AdminNotes    *string `json:"adminNotes,omitempty" validate:"omitempty,max=2000"`
	ChangedBy     int64   `json:"-"`
}

// VideoUploadResult carries the stored video location and metadata
type VideoUploadResult struct {
	URL       string                `json:"url"`
	PublicID  string                `json:"publicId"`
	VideoInfo *models.VideoInfo     `json:"videoInfo"`
	Metadata  *models.VideoMetadata `json:"metadata,omitempty"`
}
