package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// User represents an applicant or staff account.
type User struct {
	// Primary fields
	ID    int64  `json:"id" db:"id"`
	Email string `json:"email" db:"email" validate:"required,email,max=320"`

	// Authentication
	PasswordHash string `json:"-" db:"password_hash"`
	IsActive     bool   `json:"is_active" db:"is_active"`

	// Profile information
	FirstName string  `json:"first_name" db:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" db:"last_name" validate:"required,max=100"`
	Phone     *string `json:"phone,omitempty" db:"phone" validate:"omitempty,max=30"`
	Address   *string `json:"address,omitempty" db:"address" validate:"omitempty,max=255"`

	// Files (Cloudinary)
	ProfileURL      *string `json:"profile_url,omitempty" db:"profile_url"`
	ProfilePublicID *string `json:"-" db:"profile_public_id"`

	// System fields
	Role string `json:"role" db:"role" validate:"required,oneof=user admin super-admin"`

	// Mirrored application flags, maintained best-effort by the
	// application service so admin user lists avoid a join.
	ApplicationStatus      ApplicationStatus `json:"application_status" db:"application_status"`
	IsApplicationCompleted bool              `json:"is_application_completed" db:"is_application_completed"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
}

// FullName returns the display name for emails and admin lists.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds an administrative role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// Role values.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

// Session represents an authenticated session backing a JWT.
type Session struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id" validate:"required"`
	SessionToken string    `json:"session_token" db:"session_token" validate:"required"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at" validate:"required"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`

	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ===============================
// APPLICATION
// ===============================

// SectionData is one section's answers, stored as a JSONB document.
type SectionData map[string]interface{}

// Value implements driver.Valuer for JSONB storage. The value goes out
// as text so the driver never encodes it as bytea.
func (d SectionData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSONB retrieval.
func (d *SectionData) Scan(src interface{}) error {
	if src == nil {
		*d = SectionData{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into SectionData", src)
	}
	if len(raw) == 0 {
		*d = SectionData{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Clone returns a shallow copy safe for caller mutation.
func (d SectionData) Clone() SectionData {
	if d == nil {
		return SectionData{}
	}
	out := make(SectionData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// SelectedPlan is the pricing plan an applicant picked, stored as JSONB.
type SelectedPlan struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Value implements driver.Valuer.
func (p *SelectedPlan) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *SelectedPlan) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		if s, isStr := src.(string); isStr {
			raw = []byte(s)
		} else {
			return fmt.Errorf("models: cannot scan %T into SelectedPlan", src)
		}
	}
	return json.Unmarshal(raw, p)
}

// VideoMetadata describes an inline video recording, derived from the
// data URI at save time.
type VideoMetadata struct {
	Duration   float64    `json:"duration,omitempty"`
	Size       int64      `json:"size"`
	Format     string     `json:"format"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

// Value implements driver.Valuer.
func (m *VideoMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *VideoMetadata) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		if s, isStr := src.(string); isStr {
			raw = []byte(s)
		} else {
			return fmt.Errorf("models: cannot scan %T into VideoMetadata", src)
		}
	}
	return json.Unmarshal(raw, m)
}

// Application is one applicant's admissions form.
type Application struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id" validate:"required"`

	// Section documents
	WarmUp      SectionData `json:"warmUp" db:"warm_up"`
	Commitment  SectionData `json:"commitment" db:"commitment"`
	Purpose     SectionData `json:"purpose" db:"purpose"`
	Exclusivity SectionData `json:"exclusivity" db:"exclusivity"`
	Optional    SectionData `json:"optional" db:"optional"`

	// Review state
	Status ApplicationStatus `json:"status" db:"status"`

	// Denormalized completion, refreshed on every save; source of truth
	// is ComputeCompletion over the section documents.
	CompletionPercentage int `json:"completionPercentage" db:"completion_percentage"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty" db:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty" db:"reviewed_at"`
	AdminNotes  *string    `json:"adminNotes,omitempty" db:"admin_notes"`

	// Applicant-facing extras
	CurrentSection string         `json:"currentSection,omitempty" db:"current_section"`
	SelectedPlan   *SelectedPlan  `json:"selectedPlan,omitempty" db:"selected_plan"`
	VideoMetadata  *VideoMetadata `json:"videoMetadata,omitempty" db:"video_metadata"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Joined fields (not in the applications table)
	ApplicantEmail string `json:"applicant_email,omitempty" db:"-"`
	ApplicantName  string `json:"applicant_name,omitempty" db:"-"`
}

// Sections returns the stored section documents keyed by section name.
func (a *Application) Sections() map[string]SectionData {
	return map[string]SectionData{
		SectionWarmUp:      a.WarmUp,
		SectionCommitment:  a.Commitment,
		SectionPurpose:     a.Purpose,
		SectionExclusivity: a.Exclusivity,
		SectionOptional:    a.Optional,
	}
}

// Section returns the stored document for the named section.
func (a *Application) Section(name string) SectionData {
	switch name {
	case SectionWarmUp:
		return a.WarmUp
	case SectionCommitment:
		return a.Commitment
	case SectionPurpose:
		return a.Purpose
	case SectionExclusivity:
		return a.Exclusivity
	case SectionOptional:
		return a.Optional
	}
	return nil
}

// SetSection replaces the stored document for the named section.
func (a *Application) SetSection(name string, data SectionData) {
	switch name {
	case SectionWarmUp:
		a.WarmUp = data
	case SectionCommitment:
		a.Commitment = data
	case SectionPurpose:
		a.Purpose = data
	case SectionExclusivity:
		a.Exclusivity = data
	case SectionOptional:
		a.Optional = data
	}
}

// Completion evaluates the application's required sections.
func (a *Application) Completion() Completion {
	return ComputeCompletion(a.Sections())
}

// IsComplete reports whether every required field is answered.
func (a *Application) IsComplete() bool {
	return a.Completion().Complete
}

// VideoInfo summarizes the application's video state.
type VideoInfo struct {
	HasVideo     bool           `json:"hasVideo"`
	HasRecording bool           `json:"hasRecording"`
	HasURL       bool           `json:"hasUrl"`
	Metadata     *VideoMetadata `json:"metadata"`
}

// GetVideoInfo reports what video material the applicant provided.
func (a *Application) GetVideoInfo() VideoInfo {
	hasRecording := stringField(a.Optional, "videoRecording") != ""
	hasURL := stringField(a.Optional, "videoUrl") != ""
	return VideoInfo{
		HasVideo:     hasRecording || hasURL,
		HasRecording: hasRecording,
		HasURL:       hasURL,
		Metadata:     a.VideoMetadata,
	}
}

func stringField(data SectionData, key string) string {
	if data == nil {
		return ""
	}
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
