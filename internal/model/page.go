package model

// PageCursor identifies one page of a project listing. It is a plain value
// carried in the interaction payload; nothing server-side tracks it.
type PageCursor struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ProjectSummary is the listing view of a DevLake project.
type ProjectSummary struct {
	Name          string `json:"name"`
	BlueprintName string `json:"blueprint_name,omitempty"`
}

// ProjectPage is one page of projects plus the navigation state the
// transport needs to render previous/next buttons.
type ProjectPage struct {
	Items       []ProjectSummary `json:"items"`
	TotalCount  int              `json:"total_count"`
	Cursor      PageCursor       `json:"cursor"`
	HasNext     bool             `json:"has_next"`
	HasPrevious bool             `json:"has_previous"`
}
