package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
	"github.com/spec-kit/portal-service/internal/repository"
)

// Coordinator orchestrates the lifecycle engine for a project's tickets and
// milestones. Every mutating operation runs under an exclusive entity-scoped
// lock, so concurrent requests against the same entity observe a strict
// happens-before order; different entities proceed in parallel. Events are
// published only after the mutation is persisted.
type Coordinator struct {
	tickets     repository.TicketRepository
	validations repository.MilestoneValidationRepository
	payments    repository.PaymentRepository
	tasks       repository.TaskRepository
	machine     *TicketStateMachine
	tracker     *MilestoneValidationTracker
	gate        *PaymentGate
	locks       EntityLocker
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	lockTimeout time.Duration
}

// Dependencies bundles collaborators for the coordinator.
type Dependencies struct {
	TicketRepo     repository.TicketRepository
	ValidationRepo repository.MilestoneValidationRepository
	PaymentRepo    repository.PaymentRepository
	TaskRepo       repository.TaskRepository
	Locker         EntityLocker
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	LockTimeout    time.Duration
}

// NewCoordinator wires the engine components.
func NewCoordinator(deps Dependencies) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gate := NewPaymentGate(deps.PaymentRepo, logger)
	locker := deps.Locker
	if locker == nil {
		locker = NewMemoryLocker()
	}
	timeout := deps.LockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Coordinator{
		tickets:     deps.TicketRepo,
		validations: deps.ValidationRepo,
		payments:    deps.PaymentRepo,
		tasks:       deps.TaskRepo,
		machine:     NewTicketStateMachine(NewTransitionRuleTable(), gate),
		tracker:     NewMilestoneValidationTracker(),
		gate:        gate,
		locks:       locker,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		lockTimeout: timeout,
	}
}

// Rules exposes the rule table for read-only policy queries.
func (c *Coordinator) Rules() *TransitionRuleTable {
	return c.machine.rules
}

// ChangeTicketStatus applies an actor-initiated transition to the ticket.
// Either the full state change plus its events commit, or nothing changes and
// a single typed failure is returned.
func (c *Coordinator) ChangeTicketStatus(ctx context.Context, ticketID string, target domain.TicketStatus, actor domain.Actor, reason *string) (*domain.Ticket, error) {
	release, err := c.acquire(ctx, "ticket:"+ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, c.loadFailure("load ticket", err)
	}

	event, err := c.machine.RequestTransition(ctx, ticket, target, actor, reason)
	if err != nil {
		return nil, err
	}

	// The conversion task is written before the ticket so a task-store
	// failure leaves the stored ticket untouched; an unreferenced task row
	// is inert and gets reused on retry. The single Update below then
	// carries the terminal status and the task link together.
	emitted := []events.Event{event}
	if target == domain.TicketStatusConverted {
		taskEvent, err := c.createConversionTask(ctx, ticket, actor)
		if err != nil {
			return nil, err
		}
		emitted = append(emitted, taskEvent)
	}
	if err := c.tickets.Update(ctx, ticket); err != nil {
		return nil, collaboratorUnavailable("save ticket", err)
	}
	c.publish(ctx, emitted...)
	return ticket, nil
}

// ValidateMilestone records one role's sign-off on the milestone.
func (c *Coordinator) ValidateMilestone(ctx context.Context, milestoneID string, role domain.Role, validatorID string, comment *string) (*domain.MilestoneValidation, error) {
	release, err := c.acquire(ctx, "milestone:"+milestoneID)
	if err != nil {
		return nil, err
	}
	defer release()

	mv, err := c.validations.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, c.loadFailure("load milestone validation", err)
	}

	emitted, err := c.tracker.SubmitValidation(mv, role, validatorID, comment)
	if err != nil {
		return nil, err
	}
	if err := c.validations.Update(ctx, mv); err != nil {
		return nil, collaboratorUnavailable("save milestone validation", err)
	}
	c.publish(ctx, emitted...)
	return mv, nil
}

// SettlePayment reacts to a terminal payment status reported by the payment
// collaborator. Stale settlements resolve as success so callbacks can be
// retried safely.
func (c *Coordinator) SettlePayment(ctx context.Context, paymentID string, newStatus domain.PaymentStatus) error {
	payment, err := c.payments.GetByID(ctx, paymentID)
	if err != nil {
		return c.loadFailure("load payment", err)
	}
	if payment.TicketID == nil {
		// Milestone payments gate nothing directly; the sign-off path reads
		// the stored status when it needs it.
		c.logger.Info("payment settled without ticket linkage",
			zap.String("payment_id", paymentID),
			zap.String("status", string(newStatus)))
		return nil
	}

	release, err := c.acquire(ctx, "ticket:"+*payment.TicketID)
	if err != nil {
		return err
	}
	defer release()

	ticket, err := c.tickets.GetByID(ctx, *payment.TicketID)
	if err != nil {
		return c.loadFailure("load ticket", err)
	}

	event, result, err := c.gate.OnPaymentSettled(c.machine, ticket, payment, newStatus)
	if err != nil {
		return err
	}
	switch result {
	case SettlementApplied:
		if err := c.tickets.Update(ctx, ticket); err != nil {
			return collaboratorUnavailable("save ticket", err)
		}
		c.publish(ctx, *event)
	case SettlementFailed:
		c.publish(ctx, *event)
	case SettlementStale:
		// Logged by the gate; idempotent no-op.
	}
	return nil
}

// IsPaymentSatisfied is a pure read used by the boundary layer to report an
// entity's payment requirement alongside its detail view.
func (c *Coordinator) IsPaymentSatisfied(ctx context.Context, ref domain.PaymentRef) (bool, error) {
	return c.gate.IsSatisfied(ctx, ref)
}

// IsMilestoneFullyValidated is a pure read used by the boundary layer.
func (c *Coordinator) IsMilestoneFullyValidated(ctx context.Context, milestoneID string) (bool, error) {
	mv, err := c.validations.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return false, c.loadFailure("load milestone validation", err)
	}
	return c.tracker.IsFullyValidated(mv), nil
}

func (c *Coordinator) createConversionTask(ctx context.Context, ticket *domain.Ticket, actor domain.Actor) (events.Event, error) {
	// A previous attempt may have written the task and then failed to save
	// the ticket; reuse the row instead of tripping the unique constraint.
	existing, err := c.tasks.GetByTicket(ctx, ticket.ID)
	switch {
	case err == nil:
		ticket.TaskID = &existing.ID
		return taskCreatedEvent(existing.ID, ticket.ID, actor), nil
	case !errors.Is(err, pgx.ErrNoRows):
		return events.Event{}, collaboratorUnavailable("load task", err)
	}

	task := &domain.Task{
		ID:        uuid.NewString(),
		ProjectID: ticket.ProjectID,
		TicketID:  ticket.ID,
		Title:     ticket.Title,
	}
	if err := c.tasks.Create(ctx, task); err != nil {
		return events.Event{}, collaboratorUnavailable("create task", err)
	}
	ticket.TaskID = &task.ID
	return taskCreatedEvent(task.ID, ticket.ID, actor), nil
}

func taskCreatedEvent(taskID, ticketID string, actor domain.Actor) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTaskCreated,
		EntityID:  ticketID,
		Actor:     actorMeta(actor),
		Timestamp: time.Now(),
		Payload: events.TaskCreatedPayload{
			TaskID:   taskID,
			TicketID: ticketID,
		},
	}
}

func (c *Coordinator) acquire(ctx context.Context, key string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	release, err := c.locks.Acquire(lockCtx, key)
	if err != nil {
		cancel()
		return nil, err
	}
	return func() {
		release()
		cancel()
	}, nil
}

// loadFailure passes not-found through for the boundary layer to translate
// and wraps everything else as a collaborator outage.
func (c *Coordinator) loadFailure(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return collaboratorUnavailable(op, err)
}

func (c *Coordinator) publish(ctx context.Context, emitted ...events.Event) {
	if c.dispatcher == nil {
		return
	}
	for _, event := range emitted {
		_ = c.dispatcher.Publish(ctx, event)
	}
}
