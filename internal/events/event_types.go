package events

import (
	"time"

	"github.com/spec-kit/portal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated            EventType = "ticket_created"
	EventTicketStatusChanged      EventType = "ticket_status_changed"
	EventMilestoneSlotValidated   EventType = "milestone_slot_validated"
	EventMilestoneFullyValidated  EventType = "milestone_fully_validated"
	EventPaymentInitiated         EventType = "payment_initiated"
	EventPaymentFailed            EventType = "payment_failed"
	EventTaskCreated              EventType = "task_created"
)

// Actor encapsulates actor metadata for an event. System is set for
// transitions not initiated by a user, such as payment settlement.
type Actor struct {
	UserID *string      `json:"user_id,omitempty"`
	Role   *domain.Role `json:"role,omitempty"`
	System bool         `json:"system,omitempty"`
}

// Event represents a domain event emitted by the lifecycle engine. Events are
// published only after the mutation they describe is durably committed.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ProjectID string            `json:"project_id"`
	Type      domain.TicketType `json:"type"`
	Title     string            `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	FromStatus domain.TicketStatus `json:"from_status"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	Reason     *string             `json:"reason,omitempty"`
}

// MilestoneSlotValidatedPayload payload.
type MilestoneSlotValidatedPayload struct {
	Role        domain.Role `json:"role"`
	ValidatorID string      `json:"validator_id"`
	Comment     *string     `json:"comment,omitempty"`
}

// MilestoneFullyValidatedPayload payload.
type MilestoneFullyValidatedPayload struct {
	AdminValidatedAt  time.Time `json:"admin_validated_at"`
	ClientValidatedAt time.Time `json:"client_validated_at"`
}

// PaymentInitiatedPayload payload.
type PaymentInitiatedPayload struct {
	PaymentID   string  `json:"payment_id"`
	AmountCents int64   `json:"amount_cents"`
	TicketID    *string `json:"ticket_id,omitempty"`
	MilestoneID *string `json:"milestone_id,omitempty"`
}

// PaymentFailedPayload payload.
type PaymentFailedPayload struct {
	PaymentID string               `json:"payment_id"`
	TicketID  string               `json:"ticket_id"`
	Status    domain.PaymentStatus `json:"status"`
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	TaskID   string `json:"task_id"`
	TicketID string `json:"ticket_id"`
}
