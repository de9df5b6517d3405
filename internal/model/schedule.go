package model

import (
	"time"
)

// ScheduledSend links a recipient to an email template with an optional
// delivery schedule. Duplicate recipient/template pairs are allowed.
//
// Invariant: Sent is true exactly when SentDate is set. A sent record is
// terminal and is never selected for dispatch again.
type ScheduledSend struct {
	ID            string     `json:"id"`
	RecipientID   string     `json:"recipientId"`
	TemplateID    string     `json:"templateId"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Sent          bool       `json:"sent"`
	SentDate      *time.Time `json:"sentDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsDue reports whether the record should be picked up by a sweep at now
func (s *ScheduledSend) IsDue(now time.Time) bool {
	if s.Sent || s.ScheduledDate == nil {
		return false
	}
	return !s.ScheduledDate.After(now)
}
