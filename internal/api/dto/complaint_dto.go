package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Text     string  `json:"text"`
	OrderID  *string `json:"orderId"`
	Category string  `json:"category"`
}

// UpdateComplaintStatusRequest payload.
type UpdateComplaintStatusRequest struct {
	Status          string  `json:"status"`
	ResolutionNotes *string `json:"resolutionNotes"`
}

// ComplaintResponse is the wire form of a complaint.
type ComplaintResponse struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"userId"`
	Email           string                 `json:"email"`
	Text            string                 `json:"text"`
	OrderID         *string                `json:"orderId"`
	TrackingCode    string                 `json:"trackingCode"`
	Category        string                 `json:"category"`
	Priority        domain.Priority        `json:"priority"`
	Department      string                 `json:"department"`
	Summary         *string                `json:"summary"`
	Status          domain.ComplaintStatus `json:"status"`
	ResolutionNotes *string                `json:"resolutionNotes"`
	ResolvedBy      *string                `json:"resolvedBy"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// ComplaintListResponse carries the caller's role alongside the visible complaints.
type ComplaintListResponse struct {
	Complaints []ComplaintResponse `json:"complaints"`
	Role       domain.Role         `json:"role"`
}

// ComplaintHistoryResponse is one status audit entry.
type ComplaintHistoryResponse struct {
	ID              string                 `json:"id"`
	ChangedBy       string                 `json:"changedBy"`
	OldStatus       domain.ComplaintStatus `json:"oldStatus"`
	NewStatus       domain.ComplaintStatus `json:"newStatus"`
	ResolutionNotes *string                `json:"resolutionNotes"`
	CreatedAt       time.Time              `json:"createdAt"`
}
