package models

// ApplicationStats aggregates the review pipeline for admin dashboards.
type ApplicationStats struct {
	Total             int64                       `json:"total"`
	Completed         int64                       `json:"completed"` // submitted, i.e. past Draft
	Draft             int64                       `json:"draft"`
	WithVideo         int64                       `json:"withVideo"`
	ByStatus          map[ApplicationStatus]int64 `json:"byStatus"`
	AverageCompletion float64                     `json:"averageCompletion"`
}
