package dto

import (
	"time"

	"github.com/spec-kit/portal-service/internal/domain"
)

// CheckoutRequest payload.
type CheckoutRequest struct {
	TicketID    *string `json:"ticket_id,omitempty"`
	MilestoneID *string `json:"milestone_id,omitempty"`
	AmountCents int64   `json:"amount_cents"`
}

// PaymentCallbackRequest is the provider webhook payload.
type PaymentCallbackRequest struct {
	PaymentID string               `json:"payment_id"`
	Status    domain.PaymentStatus `json:"status"`
}

// PaymentResponse response.
type PaymentResponse struct {
	ID          string               `json:"id"`
	Status      domain.PaymentStatus `json:"status"`
	AmountCents int64                `json:"amount_cents"`
	TicketID    *string              `json:"ticket_id,omitempty"`
	MilestoneID *string              `json:"milestone_id,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	SettledAt   *time.Time           `json:"settled_at,omitempty"`
}
