package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/classifier"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const (
	maxTrackingCodeAttempts = 5
	// MaxPageSize caps a single listing page.
	MaxPageSize = 100
)

// Classifier assigns a classification to complaint text.
type Classifier interface {
	Classify(ctx context.Context, text, categoryHint string) classifier.Result
}

// ComplaintService owns complaint creation, visibility and status transitions.
type ComplaintService struct {
	complaints      repository.ComplaintRepository
	history         repository.ComplaintHistoryRepository
	classifier      Classifier
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	newTrackingCode func() (string, error)
	now             func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Classifier    Classifier
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// CreateComplaintInput describes a submission.
type CreateComplaintInput struct {
	Text     string
	OrderID  *string
	Category string
}

// Page selects a window of a listing. A zero Limit returns every complaint.
type Page struct {
	Limit  int
	Offset int
}

// TransitionInput describes a status change.
type TransitionInput struct {
	Status          string
	ResolutionNotes *string
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		complaints:      deps.ComplaintRepo,
		history:         deps.HistoryRepo,
		classifier:      deps.Classifier,
		dispatcher:      deps.Dispatcher,
		logger:          logger,
		newTrackingCode: NewTrackingCode,
		now:             time.Now,
	}
}

// Create files a complaint owned by identity.
func (s *ComplaintService) Create(ctx context.Context, identity domain.Identity, input CreateComplaintInput) (*domain.Complaint, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("complaint text is required", map[string]any{"field": "text"})
	}

	result := s.classifier.Classify(ctx, text, input.Category)
	complaint := &domain.Complaint{
		OwnerID:    identity.SubjectID,
		OwnerEmail: identity.Email,
		Text:       text,
		OrderID:    trimmedOrNil(input.OrderID),
		Category:   result.Category,
		Priority:   result.Priority,
		Department: result.Department,
		Summary:    trimmedOrNil(&result.Summary),
		Status:     domain.ComplaintStatusOpen,
	}

	if err := s.insertWithTrackingCode(ctx, complaint); err != nil {
		return nil, err
	}

	s.logger.Info("complaint created",
		zap.String("complaint_id", complaint.ID),
		zap.String("tracking_code", complaint.TrackingCode),
		zap.String("category", complaint.Category),
		zap.String("classification_source", string(result.Source)))

	s.publish(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Actor:       identity.Email,
		Payload: events.ComplaintCreatedPayload{
			OwnerEmail:   complaint.OwnerEmail,
			TrackingCode: complaint.TrackingCode,
			Category:     complaint.Category,
			Priority:     complaint.Priority,
			Department:   complaint.Department,
		},
	})
	return complaint, nil
}

func (s *ComplaintService) insertWithTrackingCode(ctx context.Context, complaint *domain.Complaint) error {
	for attempt := 1; attempt <= maxTrackingCodeAttempts; attempt++ {
		code, err := s.newTrackingCode()
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		complaint.TrackingCode = code

		err = s.complaints.Create(ctx, complaint)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return apperrors.NewInternalError(err)
		}
		s.logger.Warn("tracking code collision", zap.Int("attempt", attempt))
	}
	return apperrors.NewInternalError(errors.New("could not allocate a unique tracking code"))
}

// List returns the complaints role may see, newest first.
func (s *ComplaintService) List(ctx context.Context, identity domain.Identity, role domain.Role, page Page) ([]domain.Complaint, error) {
	if page.Limit < 0 || page.Limit > MaxPageSize {
		return nil, apperrors.NewValidationError("invalid limit", map[string]any{"limit": page.Limit, "max": MaxPageSize})
	}
	if page.Offset < 0 {
		return nil, apperrors.NewValidationError("invalid offset", map[string]any{"offset": page.Offset})
	}
	filter := repository.ComplaintFilter{Limit: page.Limit, Offset: page.Offset}
	if !role.Can(domain.CapViewAllComplaints) {
		owner := identity.SubjectID
		filter.OwnerID = &owner
	}
	complaints, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return complaints, nil
}

// GetByID returns a single complaint if role may see it.
func (s *ComplaintService) GetByID(ctx context.Context, identity domain.Identity, role domain.Role, id string) (*domain.Complaint, error) {
	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !role.Can(domain.CapViewAllComplaints) && complaint.OwnerID != identity.SubjectID {
		return nil, apperrors.NewForbidden("not authorized to view this complaint")
	}
	return complaint, nil
}

// Transition moves a complaint to a new status and records the acting resolver.
// Resolution notes replace stored notes only when provided and non-empty.
func (s *ComplaintService) Transition(ctx context.Context, identity domain.Identity, role domain.Role, id string, input TransitionInput) (*domain.Complaint, error) {
	if !role.Can(domain.CapTransitionComplaints) {
		return nil, apperrors.NewForbidden("not authorized to update complaints")
	}
	status, ok := domain.ParseComplaintStatus(input.Status)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
	}

	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := complaint.Status
	complaint.Status = status
	if notes := trimmedOrNil(input.ResolutionNotes); notes != nil {
		complaint.ResolutionNotes = notes
	}
	resolver := identity.Email
	complaint.ResolvedBy = &resolver

	if err := s.complaints.Update(ctx, complaint); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("complaint status changed",
		zap.String("complaint_id", complaint.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("resolved_by", resolver))

	s.recordHistory(ctx, &domain.ComplaintHistory{
		ComplaintID:     complaint.ID,
		ChangedBy:       resolver,
		OldStatus:       previous,
		NewStatus:       status,
		ResolutionNotes: complaint.ResolutionNotes,
	})

	s.publish(ctx, events.Event{
		Type:        events.EventComplaintStatusChanged,
		ComplaintID: complaint.ID,
		Actor:       identity.Email,
		Payload: events.ComplaintStatusChangedPayload{
			OwnerEmail:      complaint.OwnerEmail,
			TrackingCode:    complaint.TrackingCode,
			Category:        complaint.Category,
			OldStatus:       previous,
			NewStatus:       status,
			ResolutionNotes: complaint.ResolutionNotes,
			ResolvedBy:      resolver,
		},
	})
	return complaint, nil
}

// History returns the status audit trail of a complaint, oldest first.
func (s *ComplaintService) History(ctx context.Context, identity domain.Identity, role domain.Role, id string) ([]domain.ComplaintHistory, error) {
	if _, err := s.GetByID(ctx, identity, role, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.ComplaintHistory{}, nil
	}
	entries, err := s.history.ListByComplaint(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// recordHistory is best effort: the transition is already persisted.
func (s *ComplaintService) recordHistory(ctx context.Context, entry *domain.ComplaintHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("complaint history write failed",
			zap.String("complaint_id", entry.ComplaintID),
			zap.Error(err))
	}
}

func (s *ComplaintService) load(ctx context.Context, id string) (*domain.Complaint, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	complaint, err := s.complaints.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return complaint, nil
}

// publish hands event to the dispatcher. Dispatch failures never fail the
// operation that produced the event.
func (s *ComplaintService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("complaint_id", event.ComplaintID),
			zap.Error(err))
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
