package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to ticket
// events. Handlers run synchronously inside the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker started")
	}
}
