package worker

import (
	"github.com/spec-kit/portal-service/internal/service"
)

// StartCollaborators registers the event-driven collaborators.
func StartCollaborators(notifications *service.NotificationService, audit *service.AuditService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if audit != nil {
		audit.RegisterHandlers()
	}
}
