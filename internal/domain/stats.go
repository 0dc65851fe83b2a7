package domain

// StatusAll is the view filter value that matches every reading status.
const StatusAll = "ALL"

// Stats summarizes a collection by reading status.
type Stats struct {
	Total      int `json:"total"`
	Reading    int `json:"reading"`
	Completed  int `json:"completed"`
	PlanToRead int `json:"plan_to_read"`
}

// ViewFilter selects the books shown in a derived view.
// An empty Status or StatusAll disables status filtering.
type ViewFilter struct {
	Status string `json:"status"`
	Search string `json:"search"`
}

// MatchesAllStatuses reports whether the filter skips status matching.
func (f ViewFilter) MatchesAllStatuses() bool {
	return f.Status == "" || f.Status == StatusAll
}
