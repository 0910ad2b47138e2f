package domain

import "time"

// ComplaintHistory is an immutable audit entry written for every status transition.
type ComplaintHistory struct {
	ID              string
	ComplaintID     string
	ChangedBy       string
	OldStatus       ComplaintStatus
	NewStatus       ComplaintStatus
	ResolutionNotes *string
	CreatedAt       time.Time
}
