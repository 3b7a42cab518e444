package models

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	StatusDraft     ApplicationStatus = "Draft"
	StatusInReview  ApplicationStatus = "In Review"
	StatusAccepted  ApplicationStatus = "Accepted"
	StatusRejected  ApplicationStatus = "Rejected"
	StatusEmailSent ApplicationStatus = "Confirmation Email Sent"
)

// AllStatuses lists every assignable status in lifecycle order.
var AllStatuses = []ApplicationStatus{
	StatusDraft,
	StatusInReview,
	StatusAccepted,
	StatusRejected,
	StatusEmailSent,
}

// IsValidStatus reports whether s is one of the known statuses.
func IsValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusDraft, StatusInReview, StatusAccepted, StatusRejected, StatusEmailSent:
		return true
	}
	return false
}

// IsSubmitted reports whether the application has left Draft.
func (s ApplicationStatus) IsSubmitted() bool {
	return s != StatusDraft && IsValidStatus(s)
}

// IsDecided reports whether a review decision has been made.
func (s ApplicationStatus) IsDecided() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusEmailSent
}

func (s ApplicationStatus) String() string {
	return string(s)
}
