package dto

// StartDiscoveryRequest is the payload of POST /campaigns/discovery.
type StartDiscoveryRequest struct {
	Keywords   []string `json:"keywords"`
	MaxResults int      `json:"max_results,omitempty"`
}

// StartOutreachRequest is the payload of POST /campaigns/outreach.
type StartOutreachRequest struct {
	MaxMessages     int    `json:"max_messages,omitempty"`
	MessagesPerHour int    `json:"messages_per_hour,omitempty"`
	CategoryFilter  string `json:"category_filter,omitempty"`
	TestMode        bool   `json:"test_mode"`
}

// StartResponse tells the caller whether the campaign was accepted.
type StartResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
