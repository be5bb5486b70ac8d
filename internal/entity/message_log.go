package entity

import (
	"time"

	"github.com/google/uuid"
)

// MessageLog records one outreach attempt. Rows are never updated; a retry
// produces a new row.
type MessageLog struct {
	ID           int64      `json:"id"`
	RunID        uuid.UUID  `json:"run_id"`
	BusinessID   int64      `json:"business_id"`
	BusinessName string     `json:"business_name"`
	Phone        string     `json:"phone"`
	Sent         bool       `json:"sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// MarkSent flags the attempt as delivered at the given instant.
func (m *MessageLog) MarkSent(at time.Time) {
	m.Sent = true
	m.SentAt = &at
	m.ErrorMessage = nil
}

// MarkFailed flags the attempt as failed with a description.
func (m *MessageLog) MarkFailed(reason string) {
	m.Sent = false
	m.SentAt = nil
	m.ErrorMessage = &reason
}
