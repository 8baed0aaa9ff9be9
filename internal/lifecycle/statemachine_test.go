package lifecycle

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
)

func strPtr(s string) *string {
	return &s
}

func newTestMachine(payments *fakePaymentRepo) *TicketStateMachine {
	if payments == nil {
		payments = newFakePaymentRepo()
	}
	gate := NewPaymentGate(payments, zap.NewNop())
	return NewTicketStateMachine(NewTransitionRuleTable(), gate)
}

func openTicket(id string) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		ProjectID:   "project-1",
		RequesterID: "client-1",
		Type:        domain.TicketTypeBug,
		Title:       "login broken",
		Status:      domain.TicketStatusOpen,
	}
}

func TestRequestTransitionRejectsUnknownEdge(t *testing.T) {
	machine := newTestMachine(nil)
	ticket := openTicket("t1")
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusConverted, admin, nil)
	if CodeOf(err) != FailureInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("ticket mutated after failed transition: %s", ticket.Status)
	}
}

func TestRequestTransitionRejectsWrongRole(t *testing.T) {
	machine := newTestMachine(nil)
	ticket := openTicket("t1")
	client := domain.Actor{ID: "client-1", Role: domain.RoleClient}

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusAccepted, client, nil)
	if CodeOf(err) != FailureForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("ticket mutated after forbidden transition: %s", ticket.Status)
	}
}

func TestRequestTransitionDemandsReason(t *testing.T) {
	machine := newTestMachine(nil)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	cases := []struct {
		name   string
		reason *string
	}{
		{"nil reason", nil},
		{"empty reason", strPtr("")},
		{"blank reason", strPtr("   ")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := openTicket("t1")
			_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusRejected, admin, tc.reason)
			if CodeOf(err) != FailureReasonRequired {
				t.Fatalf("expected REASON_REQUIRED, got %v", err)
			}
			if ticket.Status != domain.TicketStatusOpen || ticket.StatusReason != nil {
				t.Fatal("ticket mutated after missing reason")
			}
		})
	}
}

func TestRequestTransitionStoresTrimmedReason(t *testing.T) {
	machine := newTestMachine(nil)
	ticket := openTicket("t1")
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	event, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusRejected, admin, strPtr("  out of scope  "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusRejected {
		t.Fatalf("status = %s, want REJECTED", ticket.Status)
	}
	if ticket.StatusReason == nil || *ticket.StatusReason != "out of scope" {
		t.Fatalf("status reason = %v, want trimmed text", ticket.StatusReason)
	}
	if ticket.ClosedAt == nil {
		t.Fatal("terminal transition should set ClosedAt")
	}

	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Payload)
	}
	if payload.FromStatus != domain.TicketStatusOpen || payload.ToStatus != domain.TicketStatusRejected {
		t.Fatalf("payload edge %s -> %s", payload.FromStatus, payload.ToStatus)
	}
	if event.Actor.UserID == nil || *event.Actor.UserID != "admin-1" {
		t.Fatal("event should carry the acting user")
	}
}

func TestRequestTransitionAcceptsOptionalReason(t *testing.T) {
	machine := newTestMachine(nil)
	ticket := openTicket("t1")
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusAccepted, admin, strPtr("looks valid"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.StatusReason == nil || *ticket.StatusReason != "looks valid" {
		t.Fatal("optional reason should still be stored")
	}
}

func TestRequestTransitionRejectsTerminalTicket(t *testing.T) {
	machine := newTestMachine(nil)
	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusConverted
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusOpen, admin, nil)
	if CodeOf(err) != FailureTerminalState {
		t.Fatalf("expected TERMINAL_STATE, got %v", err)
	}
}

func TestRequestTransitionBlocksUnsettledPayment(t *testing.T) {
	paymentID := "p1"
	payments := newFakePaymentRepo(&domain.Payment{ID: paymentID, Status: domain.PaymentStatusPending, AmountCents: 5000})
	machine := newTestMachine(payments)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusPaid
	ticket.RequiresPayment = true
	ticket.PaymentID = &paymentID

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusConverted, admin, nil)
	if CodeOf(err) != FailurePaymentPending {
		t.Fatalf("expected PAYMENT_PENDING, got %v", err)
	}
	if ticket.Status != domain.TicketStatusPaid {
		t.Fatalf("ticket mutated while payment pending: %s", ticket.Status)
	}
}

func TestRequestTransitionConvertsWhenPaymentSettled(t *testing.T) {
	paymentID := "p1"
	payments := newFakePaymentRepo(&domain.Payment{ID: paymentID, Status: domain.PaymentStatusPaid, AmountCents: 5000})
	machine := newTestMachine(payments)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusPaid
	ticket.RequiresPayment = true
	ticket.PaymentID = &paymentID

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusConverted, admin, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusConverted {
		t.Fatalf("status = %s, want CONVERTED", ticket.Status)
	}
	if ticket.ClosedAt == nil {
		t.Fatal("conversion should set ClosedAt")
	}
}

func TestRequestTransitionConvertsWithoutPaymentRequirement(t *testing.T) {
	machine := newTestMachine(nil)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusAccepted

	_, err := machine.RequestTransition(context.Background(), ticket, domain.TicketStatusConverted, admin, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusConverted {
		t.Fatalf("status = %s, want CONVERTED", ticket.Status)
	}
}

func TestApplySystemTransition(t *testing.T) {
	machine := newTestMachine(nil)

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusPaymentRequired

	event, err := machine.ApplySystemTransition(ticket, domain.TicketStatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusPaid {
		t.Fatalf("status = %s, want PAID", ticket.Status)
	}
	if !event.Actor.System {
		t.Fatal("system transition should carry a system actor")
	}

	// Still bound by the rule table.
	ticket.Status = domain.TicketStatusOpen
	if _, err := machine.ApplySystemTransition(ticket, domain.TicketStatusPaid); CodeOf(err) != FailureInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}
