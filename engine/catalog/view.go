package catalog

import "github.com/WessleyAI/wessley-marketplace/engine/domain"

// Status is the lifecycle of what the screen shows.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// View is everything the presentation layer renders for one screen. An
// empty result is StatusEmpty; a failed load is StatusError and keeps the
// previous snapshot's items.
type View struct {
	Screen     string           `json:"screen"`
	Status     Status           `json:"status"`
	Error      string           `json:"error,omitempty"`
	State      State            `json:"state"`
	SortParam  string           `json:"sortParam,omitempty"`
	Facets     Facets           `json:"facets"`
	Items      []domain.Vehicle `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Chips      []Chip           `json:"chips"`
}
