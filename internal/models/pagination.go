package models

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int    `json:"limit" schema:"limit" validate:"min=0,max=100"`
	Offset int    `json:"offset" schema:"offset" validate:"min=0"`
	Sort   string `json:"sort,omitempty" schema:"sort" validate:"omitempty,oneof=created_at updated_at status"`
	Order  string `json:"order,omitempty" schema:"order" validate:"omitempty,oneof=asc desc"`
}

// Normalize clamps the parameters to safe defaults.
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Sort == "" {
		p.Sort = "created_at"
	}
	if p.Order == "" {
		p.Order = "desc"
	}
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// NewPaginationMeta derives metadata from params and a total row count.
func NewPaginationMeta(params PaginationParams, total int64) PaginationMeta {
	params.Normalize()

	currentPage := (params.Offset / params.Limit) + 1
	totalPages := int((total + int64(params.Limit) - 1) / int64(params.Limit))

	return PaginationMeta{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: params.Limit,
		HasNext:      int64(params.Offset+params.Limit) < total,
		HasPrev:      params.Offset > 0,
	}
}
