package dto

import (
	"time"

	"github.com/spec-kit/portal-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProjectID   string            `json:"project_id"`
	Type        domain.TicketType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

// ChangeTicketStatusRequest payload.
type ChangeTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Reason *string             `json:"reason,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string              `json:"id"`
	ProjectID       string              `json:"project_id"`
	Type            domain.TicketType   `json:"type"`
	Title           string              `json:"title"`
	Status          domain.TicketStatus `json:"status"`
	RequiresPayment bool                `json:"requires_payment"`
	PaymentID       *string             `json:"payment_id,omitempty"`
	TaskID          *string             `json:"task_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID              string                `json:"id"`
	ProjectID       string                `json:"project_id"`
	RequesterID     string                `json:"requester_id"`
	Type            domain.TicketType     `json:"type"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	StatusReason    *string               `json:"status_reason,omitempty"`
	RequiresPayment bool                  `json:"requires_payment"`
	PaymentID       *string               `json:"payment_id,omitempty"`
	TaskID          *string               `json:"task_id,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	AllowedNext     []domain.TicketStatus `json:"allowed_next_statuses"`
	AuditTrail      []AuditEntryResponse  `json:"audit_trail"`
}

// AuditEntryResponse represents a change-log row.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	OldValue  map[string]any `json:"old_value,omitempty"`
	NewValue  map[string]any `json:"new_value,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
