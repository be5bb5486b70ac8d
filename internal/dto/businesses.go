package dto

import "github.com/octobees/leads-prospector/internal/entity"

// BusinessFilter contains the predicate used to query businesses.
type BusinessFilter struct {
	Category    string
	WithPhone   bool
	ExcludeSent bool
	Limit       int
	Page        int
	PerPage     int
}

// MessageLogFilter narrows message log queries. Nil fields are ignored.
type MessageLogFilter struct {
	Sent       *bool
	BusinessID *int64
}

// BusinessPage is the paginated listing returned by GET /businesses.
type BusinessPage struct {
	Businesses []entity.Business `json:"businesses"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	Pages      int               `json:"pages"`
}
