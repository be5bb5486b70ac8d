package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a CampaignSession.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// CampaignSession is the audit record of one discovery search term.
type CampaignSession struct {
	ID                int64         `json:"id"`
	RunID             uuid.UUID     `json:"run_id"`
	SearchTerm        string        `json:"search_term"`
	TotalFound        int           `json:"total_found"`
	SuccessfulScrapes int           `json:"successful_scrapes"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	Status            SessionStatus `json:"status"`
}

// Finish closes the session with the final counters and status.
func (s *CampaignSession) Finish(status SessionStatus, found, saved int, at time.Time) {
	s.Status = status
	s.TotalFound = found
	s.SuccessfulScrapes = saved
	s.CompletedAt = &at
}
