package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
	"github.com/spec-kit/portal-service/internal/repository"
)

// AuditService persists an immutable change log from emitted events. It is a
// collaborator of the lifecycle engine: a failed audit write is logged but
// never rolls back the committed state change.
type AuditService struct {
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(audit repository.AuditRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{audit: audit, dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to every event type that produces audit facts.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
	a.dispatcher.Subscribe(events.EventMilestoneSlotValidated, a.handleMilestoneSlotValidated)
	a.dispatcher.Subscribe(events.EventMilestoneFullyValidated, a.handleMilestoneFullyValidated)
	a.dispatcher.Subscribe(events.EventPaymentFailed, a.handlePaymentFailed)
	a.dispatcher.Subscribe(events.EventTaskCreated, a.handleTaskCreated)
}

func (a *AuditService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	newValue := map[string]any{"status": payload.ToStatus}
	if payload.Reason != nil {
		newValue["reason"] = *payload.Reason
	}
	return a.record(ctx, &domain.AuditEntry{
		EntityType: domain.AuditEntityTicket,
		EntityID:   event.EntityID,
		ActorID:    event.Actor.UserID,
		Action:     "status_changed",
		OldValue:   map[string]any{"status": payload.FromStatus},
		NewValue:   newValue,
	})
}

func (a *AuditService) handleMilestoneSlotValidated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MilestoneSlotValidatedPayload)
	if !ok {
		return nil
	}
	newValue := map[string]any{"role": payload.Role, "validator_id": payload.ValidatorID}
	if payload.Comment != nil {
		newValue["comment"] = *payload.Comment
	}
	return a.record(ctx, &domain.AuditEntry{
		EntityType: domain.AuditEntityMilestone,
		EntityID:   event.EntityID,
		ActorID:    event.Actor.UserID,
		Action:     "slot_validated",
		NewValue:   newValue,
	})
}

func (a *AuditService) handleMilestoneFullyValidated(ctx context.Context, event events.Event) error {
	return a.record(ctx, &domain.AuditEntry{
		EntityType: domain.AuditEntityMilestone,
		EntityID:   event.EntityID,
		ActorID:    event.Actor.UserID,
		Action:     "fully_validated",
	})
}

func (a *AuditService) handlePaymentFailed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PaymentFailedPayload)
	if !ok {
		return nil
	}
	return a.record(ctx, &domain.AuditEntry{
		EntityType: domain.AuditEntityPayment,
		EntityID:   payload.PaymentID,
		Action:     "settlement_failed",
		NewValue:   map[string]any{"status": payload.Status, "ticket_id": payload.TicketID},
	})
}

func (a *AuditService) handleTaskCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskCreatedPayload)
	if !ok {
		return nil
	}
	return a.record(ctx, &domain.AuditEntry{
		EntityType: domain.AuditEntityTicket,
		EntityID:   payload.TicketID,
		ActorID:    event.Actor.UserID,
		Action:     "task_created",
		NewValue:   map[string]any{"task_id": payload.TaskID},
	})
}

func (a *AuditService) record(ctx context.Context, entry *domain.AuditEntry) error {
	entry.ID = uuid.NewString()
	if err := a.audit.Create(ctx, entry); err != nil {
		a.logger.Error("failed to persist audit entry",
			zap.String("entity_id", entry.EntityID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
	return nil
}
