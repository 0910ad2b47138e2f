package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaint_id"`
	// Actor is the email of the identity that caused the event.
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	OwnerEmail   string          `json:"owner_email"`
	TrackingCode string          `json:"tracking_code"`
	Category     string          `json:"category"`
	Priority     domain.Priority `json:"priority"`
	Department   string          `json:"department"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OwnerEmail      string                 `json:"owner_email"`
	TrackingCode    string                 `json:"tracking_code"`
	Category        string                 `json:"category"`
	OldStatus       domain.ComplaintStatus `json:"old_status"`
	NewStatus       domain.ComplaintStatus `json:"new_status"`
	ResolutionNotes *string                `json:"resolution_notes,omitempty"`
	ResolvedBy      string                 `json:"resolved_by"`
}
