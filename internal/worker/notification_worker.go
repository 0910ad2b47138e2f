package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/service"
)

// Subscribers lists the event consumers started with the service. Nil
// entries are skipped.
type Subscribers struct {
	Notifications *service.NotificationService
	Mirror        *events.AMQPPublisher
}

// StartNotificationWorker registers notification handlers and the optional
// event mirror on dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, subs Subscribers, logger *zap.Logger) {
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
	if subs.Mirror != nil {
		subs.Mirror.Register(dispatcher)
		logger.Info("complaint events mirrored to amqp")
	}
}
