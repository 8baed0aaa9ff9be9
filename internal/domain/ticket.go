package domain

import "time"

// TicketType classifies a client request. Immutable after creation.
type TicketType string

const (
	TicketTypeBug          TicketType = "BUG"
	TicketTypeModification TicketType = "MODIFICATION"
	TicketTypeImprovement  TicketType = "IMPROVEMENT"
	TicketTypeQuestion     TicketType = "QUESTION"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusNeedsInfo       TicketStatus = "NEEDS_INFO"
	TicketStatusAccepted        TicketStatus = "ACCEPTED"
	TicketStatusRejected        TicketStatus = "REJECTED"
	TicketStatusPaymentRequired TicketStatus = "PAYMENT_REQUIRED"
	TicketStatusPaid            TicketStatus = "PAID"
	TicketStatusConverted       TicketStatus = "CONVERTED"
)

// Ticket is the aggregate for client requests. Status and StatusReason are
// mutated only through the lifecycle engine; tickets are never deleted,
// terminal statuses soft-close them.
type Ticket struct {
	ID              string
	ProjectID       string
	RequesterID     string
	Type            TicketType
	Title           string
	Description     string
	Status          TicketStatus
	StatusReason    *string
	RequiresPayment bool
	PaymentID       *string
	TaskID          *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// PaymentRef exposes the ticket's payment requirement for gating decisions.
func (t *Ticket) PaymentRef() PaymentRef {
	return PaymentRef{PaymentID: t.PaymentID, Required: t.RequiresPayment}
}

// ValidTicketType reports whether the value is part of the closed type set.
func ValidTicketType(t TicketType) bool {
	switch t {
	case TicketTypeBug, TicketTypeModification, TicketTypeImprovement, TicketTypeQuestion:
		return true
	}
	return false
}

// ValidTicketStatus reports whether the value is part of the closed status set.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusNeedsInfo, TicketStatusAccepted,
		TicketStatusRejected, TicketStatusPaymentRequired, TicketStatusPaid,
		TicketStatusConverted:
		return true
	}
	return false
}
