package domain

import (
	"strings"
	"time"
)

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "Open"
	ComplaintStatusInProgress ComplaintStatus = "In Progress"
	ComplaintStatusResolved   ComplaintStatus = "Resolved"
	ComplaintStatusClosed     ComplaintStatus = "Closed"
)

var complaintStatuses = map[string]ComplaintStatus{
	"open":       ComplaintStatusOpen,
	"inprogress": ComplaintStatusInProgress,
	"resolved":   ComplaintStatusResolved,
	"closed":     ComplaintStatusClosed,
}

// ParseComplaintStatus accepts "In Progress", "InProgress" and "in_progress" alike.
func ParseComplaintStatus(s string) (ComplaintStatus, bool) {
	key := strings.ToLower(s)
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	status, ok := complaintStatuses[key]
	return status, ok
}

// Priority enumerates complaint urgency.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// ParsePriority matches a priority name case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	case "critical":
		return PriorityCritical, true
	}
	return "", false
}

// Classification is the category/priority/department triple assigned to a complaint.
type Classification struct {
	Category   string
	Priority   Priority
	Department string
	Summary    string
}

// Complaint is a filed customer complaint. OwnerID and TrackingCode never change after creation.
type Complaint struct {
	ID              string
	OwnerID         string
	OwnerEmail      string
	Text            string
	OrderID         *string
	TrackingCode    string
	Category        string
	Priority        Priority
	Department      string
	Summary         *string
	Status          ComplaintStatus
	ResolutionNotes *string
	ResolvedBy      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
