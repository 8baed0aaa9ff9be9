package lifecycle

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
)

func TestIsSatisfied(t *testing.T) {
	paymentID := "p1"
	pendingID := "p2"
	payments := newFakePaymentRepo(
		&domain.Payment{ID: paymentID, Status: domain.PaymentStatusPaid},
		&domain.Payment{ID: pendingID, Status: domain.PaymentStatusPending},
	)
	gate := NewPaymentGate(payments, zap.NewNop())

	cases := []struct {
		name      string
		ref       domain.PaymentRef
		satisfied bool
	}{
		{"no requirement", domain.PaymentRef{Required: false}, true},
		{"required but no payment linked", domain.PaymentRef{Required: true}, false},
		{"required and pending", domain.PaymentRef{Required: true, PaymentID: &pendingID}, false},
		{"required and paid", domain.PaymentRef{Required: true, PaymentID: &paymentID}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gate.IsSatisfied(context.Background(), tc.ref)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.satisfied {
				t.Fatalf("IsSatisfied = %v, want %v", got, tc.satisfied)
			}
		})
	}
}

func TestOnPaymentSettledPaid(t *testing.T) {
	gate := NewPaymentGate(newFakePaymentRepo(), zap.NewNop())
	machine := newTestMachine(nil)

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusPaymentRequired
	payment := &domain.Payment{ID: "p1", TicketID: &ticket.ID}

	event, result, err := gate.OnPaymentSettled(machine, ticket, payment, domain.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != SettlementApplied {
		t.Fatalf("result = %v, want SettlementApplied", result)
	}
	if ticket.Status != domain.TicketStatusPaid {
		t.Fatalf("status = %s, want PAID", ticket.Status)
	}
	if event == nil || event.Type != events.EventTicketStatusChanged {
		t.Fatalf("expected a status-changed event, got %v", event)
	}
	if !event.Actor.System {
		t.Fatal("settlement transition should carry a system actor")
	}
}

func TestOnPaymentSettledFailure(t *testing.T) {
	gate := NewPaymentGate(newFakePaymentRepo(), zap.NewNop())
	machine := newTestMachine(nil)

	for _, status := range []domain.PaymentStatus{domain.PaymentStatusCanceled, domain.PaymentStatusExpired} {
		ticket := openTicket("t1")
		ticket.Status = domain.TicketStatusPaymentRequired
		payment := &domain.Payment{ID: "p1", TicketID: &ticket.ID}

		event, result, err := gate.OnPaymentSettled(machine, ticket, payment, status)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", status, err)
		}
		if result != SettlementFailed {
			t.Fatalf("%s: result = %v, want SettlementFailed", status, result)
		}
		if ticket.Status != domain.TicketStatusPaymentRequired {
			t.Fatalf("%s: ticket should stay in PAYMENT_REQUIRED, got %s", status, ticket.Status)
		}
		if event == nil || event.Type != events.EventPaymentFailed {
			t.Fatalf("%s: expected a payment-failed event, got %v", status, event)
		}
	}
}

func TestOnPaymentSettledStale(t *testing.T) {
	gate := NewPaymentGate(newFakePaymentRepo(), zap.NewNop())
	machine := newTestMachine(nil)

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusPaid
	payment := &domain.Payment{ID: "p1", TicketID: &ticket.ID}

	event, result, err := gate.OnPaymentSettled(machine, ticket, payment, domain.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != SettlementStale {
		t.Fatalf("result = %v, want SettlementStale", result)
	}
	if event != nil {
		t.Fatalf("stale settlement should emit nothing, got %v", event)
	}
	if ticket.Status != domain.TicketStatusPaid {
		t.Fatalf("ticket mutated by stale settlement: %s", ticket.Status)
	}
}
