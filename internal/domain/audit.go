package domain

import "time"

// AuditEntityType names the aggregate an audit entry belongs to.
type AuditEntityType string

const (
	AuditEntityTicket    AuditEntityType = "TICKET"
	AuditEntityMilestone AuditEntityType = "MILESTONE"
	AuditEntityPayment   AuditEntityType = "PAYMENT"
)

// AuditEntry is an immutable change-log row, written by the audit collaborator
// from emitted lifecycle events.
type AuditEntry struct {
	ID         string
	EntityType AuditEntityType
	EntityID   string
	ActorID    *string
	Action     string
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
