package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
	"github.com/spec-kit/portal-service/internal/lifecycle"
	"github.com/spec-kit/portal-service/internal/repository"
	"github.com/spec-kit/portal-service/pkg/util/errorutil"
)

// PaymentService owns the payment records the lifecycle engine gates on. It
// writes them in exactly two places: checkout initiation (PENDING) and the
// provider callback (terminal status, once). The engine itself never writes.
type PaymentService struct {
	payments    repository.PaymentRepository
	tickets     repository.TicketRepository
	milestones  repository.MilestoneRepository
	coordinator *lifecycle.Coordinator
	dispatcher  events.Dispatcher
}

// PaymentDependencies bundles collaborators for the payment service.
type PaymentDependencies struct {
	PaymentRepo   repository.PaymentRepository
	TicketRepo    repository.TicketRepository
	MilestoneRepo repository.MilestoneRepository
	Coordinator   *lifecycle.Coordinator
	Dispatcher    events.Dispatcher
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	return &PaymentService{
		payments:    deps.PaymentRepo,
		tickets:     deps.TicketRepo,
		milestones:  deps.MilestoneRepo,
		coordinator: deps.Coordinator,
		dispatcher:  deps.Dispatcher,
	}
}

// CheckoutInput describes checkout initiation payload. Exactly one of
// TicketID or MilestoneID must be set.
type CheckoutInput struct {
	TicketID    *string
	MilestoneID *string
	AmountCents int64
}

// InitiateCheckout creates a PENDING payment and links it to the target
// entity, marking the entity as payment-required.
func (s *PaymentService) InitiateCheckout(ctx context.Context, actor domain.Actor, input CheckoutInput) (*domain.Payment, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, errorutil.NewForbidden("only admins initiate checkout")
	}
	if (input.TicketID == nil) == (input.MilestoneID == nil) {
		return nil, errorutil.NewValidationError("exactly one of ticket_id or milestone_id required", nil)
	}
	if input.AmountCents <= 0 {
		return nil, errorutil.NewValidationError("amount must be positive", nil)
	}

	payment := &domain.Payment{
		ID:          uuid.NewString(),
		Status:      domain.PaymentStatusPending,
		AmountCents: input.AmountCents,
		TicketID:    input.TicketID,
		MilestoneID: input.MilestoneID,
	}

	switch {
	case input.TicketID != nil:
		ticket, err := s.tickets.GetByID(ctx, *input.TicketID)
		if err != nil {
			return nil, err
		}
		if ticket.PaymentID != nil {
			return nil, errorutil.NewConflict("ticket already has a payment", nil)
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
		ticket.PaymentID = &payment.ID
		ticket.RequiresPayment = true
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	case input.MilestoneID != nil:
		milestone, err := s.milestones.GetByID(ctx, *input.MilestoneID)
		if err != nil {
			return nil, err
		}
		if milestone.PaymentID != nil {
			return nil, errorutil.NewConflict("milestone already has a payment", nil)
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
		milestone.PaymentID = &payment.ID
		milestone.RequiresPayment = true
		if err := s.milestones.Update(ctx, milestone); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventPaymentInitiated,
		EntityID: payment.ID,
		Actor:    events.Actor{UserID: &actor.ID, Role: &actor.Role},
		Payload: events.PaymentInitiatedPayload{
			PaymentID:   payment.ID,
			AmountCents: payment.AmountCents,
			TicketID:    payment.TicketID,
			MilestoneID: payment.MilestoneID,
		},
	})
	return payment, nil
}

// HandleProviderCallback persists the terminal status reported by the payment
// provider, then lets the lifecycle engine react. Retries of the same
// terminal status succeed as no-ops; conflicting terminal statuses fail.
func (s *PaymentService) HandleProviderCallback(ctx context.Context, paymentID string, newStatus domain.PaymentStatus) error {
	if !newStatus.Terminal() {
		return errorutil.NewValidationError("callback status must be terminal", map[string]any{"status": newStatus})
	}

	applied, err := s.payments.SettleStatus(ctx, paymentID, newStatus, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrSettlementConflict) {
			return errorutil.NewConflict("payment already settled with a different status", map[string]any{"payment_id": paymentID})
		}
		return err
	}
	_ = applied // a retried callback still reaches the engine, which treats it as stale

	return s.coordinator.SettlePayment(ctx, paymentID, newStatus)
}

// GetPayment returns a payment record.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, paymentID)
}

func (s *PaymentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
