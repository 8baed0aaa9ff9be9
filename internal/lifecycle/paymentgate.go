package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
)

// PaymentReader is the slice of payment persistence the gate consumes.
type PaymentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
}

// SettlementResult classifies the outcome of a payment settlement callback.
type SettlementResult int

const (
	// SettlementApplied means the linked ticket transitioned to PAID.
	SettlementApplied SettlementResult = iota
	// SettlementFailed means the payment ended CANCELED or EXPIRED; the
	// ticket stays in PAYMENT_REQUIRED and a PaymentFailed event is due.
	SettlementFailed
	// SettlementStale means the callback had no effect. Callbacks must be
	// retryable, so stale settlements resolve as success.
	SettlementStale
)

// PaymentGate couples ticket progression to payment completion. It only ever
// reads payments; the payment subsystem owns their state.
type PaymentGate struct {
	payments PaymentReader
	logger   *zap.Logger
}

// NewPaymentGate constructs the gate.
func NewPaymentGate(payments PaymentReader, logger *zap.Logger) *PaymentGate {
	return &PaymentGate{payments: payments, logger: logger}
}

// IsSatisfied reports whether payment-gated transitions may proceed: the
// entity either requires no payment, or its linked payment is PAID.
func (g *PaymentGate) IsSatisfied(ctx context.Context, ref domain.PaymentRef) (bool, error) {
	if !ref.Required {
		return true, nil
	}
	if ref.PaymentID == nil {
		return false, nil
	}
	payment, err := g.payments.GetByID(ctx, *ref.PaymentID)
	if err != nil {
		return false, collaboratorUnavailable("load payment", err)
	}
	return payment.Status == domain.PaymentStatusPaid, nil
}

// OnPaymentSettled reacts to a terminal payment status for a ticket-linked
// payment. A PAID settlement drives the PAYMENT_REQUIRED -> PAID system
// transition; CANCELED and EXPIRED leave the ticket where it is. When the
// ticket has already moved on, the settlement is stale and a no-op.
func (g *PaymentGate) OnPaymentSettled(machine *TicketStateMachine, ticket *domain.Ticket, payment *domain.Payment, newStatus domain.PaymentStatus) (*events.Event, SettlementResult, error) {
	if ticket.Status != domain.TicketStatusPaymentRequired {
		g.logger.Info("stale payment settlement",
			zap.String("payment_id", payment.ID),
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_status", string(ticket.Status)),
			zap.String("payment_status", string(newStatus)))
		return nil, SettlementStale, nil
	}

	switch newStatus {
	case domain.PaymentStatusPaid:
		event, err := machine.ApplySystemTransition(ticket, domain.TicketStatusPaid)
		if err != nil {
			return nil, SettlementStale, err
		}
		return &event, SettlementApplied, nil
	case domain.PaymentStatusCanceled, domain.PaymentStatusExpired:
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventPaymentFailed,
			EntityID:  ticket.ID,
			Actor:     events.Actor{System: true},
			Timestamp: time.Now(),
			Payload: events.PaymentFailedPayload{
				PaymentID: payment.ID,
				TicketID:  ticket.ID,
				Status:    newStatus,
			},
		}
		return &event, SettlementFailed, nil
	}

	g.logger.Warn("ignoring non-terminal settlement status",
		zap.String("payment_id", payment.ID),
		zap.String("status", string(newStatus)))
	return nil, SettlementStale, nil
}
