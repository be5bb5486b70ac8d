package entity

import "time"

// Business represents a local business found by a discovery campaign.
// The pair (Name, Phone) identifies the real-world business.
type Business struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	Category    string    `json:"category,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Website     string    `json:"website,omitempty"`
	SearchTerm  string    `json:"search_term,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasPhone reports whether the business can be reached by the outreach channel.
func (b Business) HasPhone() bool {
	return b.Phone != ""
}
