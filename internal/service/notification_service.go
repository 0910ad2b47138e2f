package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
)

const noNotesPlaceholder = "No notes provided"

// NotificationService mails complaint owners when their complaint is received,
// picked up or resolved. It runs on dispatcher goroutines and never reports
// failures back to the request that caused them.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service. A nil mailer means outbound mail
// is not configured and every notification is skipped.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleComplaintCreated)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleComplaintStatusChanged)
}

func (n *NotificationService) handleComplaintCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.send(ctx, event, receivedMessage(payload))
	return nil
}

func (n *NotificationService) handleComplaintStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	switch payload.NewStatus {
	case domain.ComplaintStatusInProgress:
		n.send(ctx, event, inProgressMessage(payload))
	case domain.ComplaintStatusResolved:
		n.send(ctx, event, resolvedMessage(payload))
	}
	return nil
}

func (n *NotificationService) send(ctx context.Context, event events.Event, msg notify.Message) {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("complaint_id", event.ComplaintID),
	}
	if n.mailer == nil {
		n.metrics.RecordNotification(observability.NotificationSkipped)
		n.logger.Debug("notification skipped", append(fields, zap.String("reason", "mail not configured"))...)
		return
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.metrics.RecordNotification(observability.NotificationFailed)
		n.logger.Warn("notification failed", append(fields, zap.Error(err))...)
		return
	}
	n.metrics.RecordNotification(observability.NotificationSent)
	n.logger.Info("notification sent", fields...)
}

func receivedMessage(p events.ComplaintCreatedPayload) notify.Message {
	return notify.Message{
		To:      p.OwnerEmail,
		Subject: fmt.Sprintf("Complaint received [%s]", p.TrackingCode),
		Body: fmt.Sprintf("We have received your complaint.\n\n"+
			"Tracking code: %s\n\n"+
			"Keep this code to follow up on your complaint. We will email you when its status changes.\n",
			p.TrackingCode),
	}
}

func inProgressMessage(p events.ComplaintStatusChangedPayload) notify.Message {
	return notify.Message{
		To:      p.OwnerEmail,
		Subject: fmt.Sprintf("Your complaint is in progress [%s]", p.TrackingCode),
		Body: fmt.Sprintf("Our team has started working on your complaint.\n\n"+
			"Tracking code: %s\nCategory: %s\n",
			p.TrackingCode, p.Category),
	}
}

func resolvedMessage(p events.ComplaintStatusChangedPayload) notify.Message {
	notes := noNotesPlaceholder
	if p.ResolutionNotes != nil && *p.ResolutionNotes != "" {
		notes = *p.ResolutionNotes
	}
	return notify.Message{
		To:      p.OwnerEmail,
		Subject: fmt.Sprintf("Your complaint has been resolved [%s]", p.TrackingCode),
		Body: fmt.Sprintf("Your complaint has been resolved.\n\n"+
			"Tracking code: %s\nResolution notes: %s\n",
			p.TrackingCode, notes),
	}
}
