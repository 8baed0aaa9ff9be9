package lifecycle

import "github.com/spec-kit/portal-service/internal/domain"

// transitionRule describes one legal edge of the ticket status graph.
type transitionRule struct {
	roles           []domain.Role // empty means system-driven only
	requiresReason  bool
	requiresPayment bool
}

// transitionTable is the single source of truth for legal ticket status
// edges. All transition policy lives here so the state machine stays generic.
//
// PAYMENT_REQUIRED -> PAID carries no roles: it is driven exclusively by the
// payment gate observing a settled payment. Edges into CONVERTED are
// payment-gated so a ticket with an unsettled payment can never convert.
var transitionTable = map[domain.TicketStatus]map[domain.TicketStatus]transitionRule{
	domain.TicketStatusOpen: {
		domain.TicketStatusNeedsInfo: {roles: []domain.Role{domain.RoleAdmin}, requiresReason: true},
		domain.TicketStatusAccepted:  {roles: []domain.Role{domain.RoleAdmin}},
		domain.TicketStatusRejected:  {roles: []domain.Role{domain.RoleAdmin}, requiresReason: true},
	},
	domain.TicketStatusNeedsInfo: {
		domain.TicketStatusOpen:     {roles: []domain.Role{domain.RoleClient, domain.RoleAdmin}},
		domain.TicketStatusRejected: {roles: []domain.Role{domain.RoleAdmin}, requiresReason: true},
	},
	domain.TicketStatusAccepted: {
		domain.TicketStatusPaymentRequired: {roles: []domain.Role{domain.RoleAdmin}},
		domain.TicketStatusConverted:       {roles: []domain.Role{domain.RoleAdmin}, requiresPayment: true},
	},
	domain.TicketStatusPaymentRequired: {
		domain.TicketStatusPaid: {},
	},
	domain.TicketStatusPaid: {
		domain.TicketStatusConverted: {roles: []domain.Role{domain.RoleAdmin}, requiresPayment: true},
	},
	domain.TicketStatusRejected:  {},
	domain.TicketStatusConverted: {},
}

// TransitionRuleTable answers transition policy questions. It is pure and
// stateless; the rule set is fixed at compile time.
type TransitionRuleTable struct{}

// NewTransitionRuleTable returns the rule table.
func NewTransitionRuleTable() *TransitionRuleTable {
	return &TransitionRuleTable{}
}

// AllowedNextStatuses returns the set of statuses reachable from current.
func (t *TransitionRuleTable) AllowedNextStatuses(current domain.TicketStatus) []domain.TicketStatus {
	edges := transitionTable[current]
	next := make([]domain.TicketStatus, 0, len(edges))
	for status := range edges {
		next = append(next, status)
	}
	return next
}

// Allowed reports whether the edge current -> next exists.
func (t *TransitionRuleTable) Allowed(current, next domain.TicketStatus) bool {
	_, ok := transitionTable[current][next]
	return ok
}

// Terminal reports whether the status has no outgoing edges.
func (t *TransitionRuleTable) Terminal(status domain.TicketStatus) bool {
	return len(transitionTable[status]) == 0
}

// RequiresReason reports whether the edge demands a justification.
func (t *TransitionRuleTable) RequiresReason(current, next domain.TicketStatus) bool {
	return transitionTable[current][next].requiresReason
}

// RequiresPayment reports whether the edge is payment-gated.
func (t *TransitionRuleTable) RequiresPayment(current, next domain.TicketStatus) bool {
	return transitionTable[current][next].requiresPayment
}

// AllowedActorRoles returns the roles permitted on the edge. An empty set on
// an existing edge means the transition is system-driven only.
func (t *TransitionRuleTable) AllowedActorRoles(current, next domain.TicketStatus) []domain.Role {
	return transitionTable[current][next].roles
}

// RoleAllowed reports whether the role may initiate the edge.
func (t *TransitionRuleTable) RoleAllowed(current, next domain.TicketStatus, role domain.Role) bool {
	for _, allowed := range transitionTable[current][next].roles {
		if allowed == role {
			return true
		}
	}
	return false
}
