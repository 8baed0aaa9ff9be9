package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
)

// TicketStateMachine applies status transitions to a single ticket through
// the rule table. It mutates the in-memory ticket only; the coordinator is
// responsible for persisting the result and publishing the returned event
// after the write commits.
type TicketStateMachine struct {
	rules *TransitionRuleTable
	gate  *PaymentGate
}

// NewTicketStateMachine constructs the machine.
func NewTicketStateMachine(rules *TransitionRuleTable, gate *PaymentGate) *TicketStateMachine {
	return &TicketStateMachine{rules: rules, gate: gate}
}

// RequestTransition validates and applies an actor-initiated transition.
// Validation order: terminal state, legal edge, actor role, mandatory reason,
// payment gate. A failed request leaves the ticket untouched.
func (m *TicketStateMachine) RequestTransition(ctx context.Context, ticket *domain.Ticket, target domain.TicketStatus, actor domain.Actor, reason *string) (events.Event, error) {
	if m.rules.Terminal(ticket.Status) {
		return events.Event{}, terminalState(ticket.Status)
	}
	if !m.rules.Allowed(ticket.Status, target) {
		return events.Event{}, invalidTransition(ticket.Status, target)
	}
	if !m.rules.RoleAllowed(ticket.Status, target, actor.Role) {
		return events.Event{}, forbidden(actor.Role, ticket.Status, target)
	}
	if m.rules.RequiresReason(ticket.Status, target) && emptyReason(reason) {
		return events.Event{}, reasonRequired(target)
	}
	if m.rules.RequiresPayment(ticket.Status, target) {
		satisfied, err := m.gate.IsSatisfied(ctx, ticket.PaymentRef())
		if err != nil {
			return events.Event{}, err
		}
		if !satisfied {
			return events.Event{}, paymentPending(ticket.ID)
		}
	}

	from := ticket.Status
	m.apply(ticket, target, reason)
	return statusChangedEvent(ticket.ID, from, target, actorMeta(actor), ticket.StatusReason), nil
}

// ApplySystemTransition applies a system-driven transition. It bypasses actor
// and reason checks but still validates the edge against the rule table; only
// the payment gate uses it, for the PAYMENT_REQUIRED -> PAID edge.
func (m *TicketStateMachine) ApplySystemTransition(ticket *domain.Ticket, target domain.TicketStatus) (events.Event, error) {
	if m.rules.Terminal(ticket.Status) {
		return events.Event{}, terminalState(ticket.Status)
	}
	if !m.rules.Allowed(ticket.Status, target) {
		return events.Event{}, invalidTransition(ticket.Status, target)
	}

	from := ticket.Status
	m.apply(ticket, target, nil)
	return statusChangedEvent(ticket.ID, from, target, events.Actor{System: true}, nil), nil
}

func (m *TicketStateMachine) apply(ticket *domain.Ticket, target domain.TicketStatus, reason *string) {
	ticket.Status = target
	if reason != nil && strings.TrimSpace(*reason) != "" {
		trimmed := strings.TrimSpace(*reason)
		ticket.StatusReason = &trimmed
	}
	if m.rules.Terminal(target) {
		now := time.Now()
		ticket.ClosedAt = &now
	}
}

func emptyReason(reason *string) bool {
	return reason == nil || strings.TrimSpace(*reason) == ""
}

func actorMeta(actor domain.Actor) events.Actor {
	id := actor.ID
	role := actor.Role
	return events.Actor{UserID: &id, Role: &role}
}

func statusChangedEvent(ticketID string, from, to domain.TicketStatus, actor events.Actor, reason *string) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		EntityID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload: events.TicketStatusChangedPayload{
			FromStatus: from,
			ToStatus:   to,
			Reason:     reason,
		},
	}
}
