package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
	"github.com/spec-kit/portal-service/internal/lifecycle"
	"github.com/spec-kit/portal-service/internal/repository"
	"github.com/spec-kit/portal-service/pkg/util/errorutil"
)

// TicketService exposes ticket workflows to the boundary layer. Creation and
// reads go straight to the repository; every status mutation is delegated to
// the lifecycle coordinator.
type TicketService struct {
	tickets     repository.TicketRepository
	audit       repository.AuditRepository
	coordinator *lifecycle.Coordinator
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	AuditRepo   repository.AuditRepository
	Coordinator *lifecycle.Coordinator
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		audit:       deps.AuditRepo,
		coordinator: deps.Coordinator,
		dispatcher:  deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ProjectID   string
	Type        domain.TicketType
	Title       string
	Description string
}

// CreateTicket opens a ticket on behalf of a client.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleClient {
		return nil, errorutil.NewForbidden("only clients open tickets")
	}
	if !domain.ValidTicketType(input.Type) {
		return nil, errorutil.NewValidationError("unknown ticket type", map[string]any{"type": input.Type})
	}

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		RequesterID: actor.ID,
		Type:        input.Type,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		Actor:    events.Actor{UserID: &actor.ID, Role: &actor.Role},
		Payload: events.TicketCreatedPayload{
			ProjectID: ticket.ProjectID,
			Type:      ticket.Type,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// ChangeStatus delegates a transition request to the lifecycle coordinator.
func (s *TicketService) ChangeStatus(ctx context.Context, ticketID string, target domain.TicketStatus, actor domain.Actor, reason *string) (*domain.Ticket, error) {
	if !domain.ValidTicketStatus(target) {
		return nil, errorutil.NewValidationError("unknown ticket status", map[string]any{"status": target})
	}
	return s.coordinator.ChangeTicketStatus(ctx, ticketID, target, actor, reason)
}

// GetTicket fetches a ticket with its audit trail, enforcing client ownership.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.AuditEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == domain.RoleClient && ticket.RequesterID != actor.ID {
		return nil, nil, errorutil.NewForbidden("access denied")
	}
	trail, err := s.audit.ListByEntity(ctx, domain.AuditEntityTicket, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, trail, nil
}

// AllowedNextStatuses reports where a ticket in the given status may move.
func (s *TicketService) AllowedNextStatuses(status domain.TicketStatus) []domain.TicketStatus {
	return s.coordinator.Rules().AllowedNextStatuses(status)
}

// ListTickets returns tickets visible to the actor. Clients see their own
// tickets only; admins see everything matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if actor.Role == domain.RoleClient {
		filter.RequesterID = &actor.ID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
