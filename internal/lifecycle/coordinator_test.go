package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	tickets     *fakeTicketRepo
	validations *fakeValidationRepo
	payments    *fakePaymentRepo
	tasks       *fakeTaskRepo
	dispatcher  *captureDispatcher
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	fx := &coordinatorFixture{
		tickets:     newFakeTicketRepo(),
		validations: newFakeValidationRepo(),
		payments:    newFakePaymentRepo(),
		tasks:       newFakeTaskRepo(),
		dispatcher:  &captureDispatcher{},
	}
	fx.coordinator = NewCoordinator(Dependencies{
		TicketRepo:     fx.tickets,
		ValidationRepo: fx.validations,
		PaymentRepo:    fx.payments,
		TaskRepo:       fx.tasks,
		Dispatcher:     fx.dispatcher,
		LockTimeout:    2 * time.Second,
	})
	return fx
}

func (fx *coordinatorFixture) seedTicket(t *testing.T, ticket *domain.Ticket) {
	t.Helper()
	if err := fx.tickets.Create(context.Background(), ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
}

func TestChangeTicketStatusPersistsAndPublishes(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.seedTicket(t, openTicket("t1"))
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	ticket, err := fx.coordinator.ChangeTicketStatus(context.Background(), "t1", domain.TicketStatusAccepted, admin, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusAccepted {
		t.Fatalf("returned status = %s, want ACCEPTED", ticket.Status)
	}

	stored, err := fx.tickets.GetByID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	if stored.Status != domain.TicketStatusAccepted {
		t.Fatalf("stored status = %s, want ACCEPTED", stored.Status)
	}
	if fx.dispatcher.countByType(events.EventTicketStatusChanged) != 1 {
		t.Fatal("expected exactly one status-changed event")
	}
}

func TestChangeTicketStatusFailurePublishesNothing(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.seedTicket(t, openTicket("t1"))
	client := domain.Actor{ID: "client-1", Role: domain.RoleClient}

	_, err := fx.coordinator.ChangeTicketStatus(context.Background(), "t1", domain.TicketStatusAccepted, client, nil)
	if CodeOf(err) != FailureForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if len(fx.dispatcher.events) != 0 {
		t.Fatalf("failed transition published %d events", len(fx.dispatcher.events))
	}

	stored, _ := fx.tickets.GetByID(context.Background(), "t1")
	if stored.Status != domain.TicketStatusOpen {
		t.Fatalf("stored status mutated to %s", stored.Status)
	}
}

func TestChangeTicketStatusUnknownTicket(t *testing.T) {
	fx := newCoordinatorFixture(t)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := fx.coordinator.ChangeTicketStatus(context.Background(), "missing", domain.TicketStatusAccepted, admin, nil)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows passthrough, got %v", err)
	}
}

func TestPaidTicketLifecycle(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.seedTicket(t, openTicket("t1"))
	ctx := context.Background()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	client := domain.Actor{ID: "client-1", Role: domain.RoleClient}

	if _, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusAccepted, admin, nil); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusPaymentRequired, admin, nil); err != nil {
		t.Fatalf("require payment: %v", err)
	}

	// Checkout links a pending payment to the ticket.
	ticketID := "t1"
	payment := &domain.Payment{ID: "p1", Status: domain.PaymentStatusPending, AmountCents: 5000, TicketID: &ticketID}
	if err := fx.payments.Create(ctx, payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	stored, _ := fx.tickets.GetByID(ctx, "t1")
	stored.RequiresPayment = true
	stored.PaymentID = &payment.ID
	if err := fx.tickets.Update(ctx, stored); err != nil {
		t.Fatalf("link payment: %v", err)
	}

	// No actor may force the PAID edge.
	if _, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusPaid, client, nil); CodeOf(err) != FailureForbidden {
		t.Fatalf("client forcing PAID: expected FORBIDDEN, got %v", err)
	}
	if _, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusPaid, admin, nil); CodeOf(err) != FailureForbidden {
		t.Fatalf("admin forcing PAID: expected FORBIDDEN, got %v", err)
	}

	// Conversion is blocked until the payment settles.
	if _, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusConverted, admin, nil); CodeOf(err) != FailureInvalidTransition {
		t.Fatalf("convert before settlement: expected INVALID_TRANSITION, got %v", err)
	}

	if _, err := fx.payments.SettleStatus(ctx, "p1", domain.PaymentStatusPaid, time.Now()); err != nil {
		t.Fatalf("settle payment: %v", err)
	}
	if err := fx.coordinator.SettlePayment(ctx, "p1", domain.PaymentStatusPaid); err != nil {
		t.Fatalf("settlement callback: %v", err)
	}

	stored, _ = fx.tickets.GetByID(ctx, "t1")
	if stored.Status != domain.TicketStatusPaid {
		t.Fatalf("status after settlement = %s, want PAID", stored.Status)
	}

	ticket, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusConverted, admin, nil)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if ticket.Status != domain.TicketStatusConverted {
		t.Fatalf("status = %s, want CONVERTED", ticket.Status)
	}
	if ticket.TaskID == nil {
		t.Fatal("conversion should link a task")
	}
	task, err := fx.tasks.GetByTicket(ctx, "t1")
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.ID != *ticket.TaskID {
		t.Fatalf("task link mismatch: %s vs %s", task.ID, *ticket.TaskID)
	}
	if fx.dispatcher.countByType(events.EventTaskCreated) != 1 {
		t.Fatal("expected exactly one task-created event")
	}
}

func TestConversionTaskFailureChangesNothing(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusAccepted
	fx.seedTicket(t, ticket)

	fx.tasks.createErr = errors.New("task store down")
	_, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusConverted, admin, nil)
	if CodeOf(err) != FailureCollaboratorUnavailable {
		t.Fatalf("expected COLLABORATOR_UNAVAILABLE, got %v", err)
	}

	stored, _ := fx.tickets.GetByID(ctx, "t1")
	if stored.Status != domain.TicketStatusAccepted {
		t.Fatalf("stored status = %s, want ACCEPTED", stored.Status)
	}
	if stored.TaskID != nil || stored.ClosedAt != nil {
		t.Fatal("failed conversion must not touch the stored ticket")
	}
	if len(fx.dispatcher.events) != 0 {
		t.Fatalf("failed conversion published %d events", len(fx.dispatcher.events))
	}

	// The ticket is not terminal, so the same request can be retried.
	fx.tasks.createErr = nil
	converted, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusConverted, admin, nil)
	if err != nil {
		t.Fatalf("retry after task store recovery: %v", err)
	}
	if converted.Status != domain.TicketStatusConverted || converted.TaskID == nil {
		t.Fatalf("retry did not complete the conversion: %+v", converted)
	}
	if fx.dispatcher.countByType(events.EventTicketStatusChanged) != 1 {
		t.Fatal("expected exactly one status-changed event")
	}
	if fx.dispatcher.countByType(events.EventTaskCreated) != 1 {
		t.Fatal("expected exactly one task-created event")
	}
}

func TestConversionReusesOrphanedTask(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	ticket := openTicket("t1")
	ticket.Status = domain.TicketStatusAccepted
	fx.seedTicket(t, ticket)

	// A prior attempt wrote the task but never saved the ticket.
	orphan := &domain.Task{ID: "task-1", ProjectID: ticket.ProjectID, TicketID: "t1", Title: ticket.Title}
	if err := fx.tasks.Create(ctx, orphan); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	fx.tasks.createErr = errors.New("should not create a second task")

	converted, err := fx.coordinator.ChangeTicketStatus(ctx, "t1", domain.TicketStatusConverted, admin, nil)
	if err != nil {
		t.Fatalf("convert with existing task: %v", err)
	}
	if converted.TaskID == nil || *converted.TaskID != "task-1" {
		t.Fatalf("expected the orphaned task to be reused, got %v", converted.TaskID)
	}
}

func TestSettlePaymentIsIdempotent(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	ticketID := "t1"
	ticket := openTicket(ticketID)
	ticket.Status = domain.TicketStatusPaymentRequired
	ticket.RequiresPayment = true
	paymentID := "p1"
	ticket.PaymentID = &paymentID
	fx.seedTicket(t, ticket)
	if err := fx.payments.Create(ctx, &domain.Payment{ID: paymentID, Status: domain.PaymentStatusPaid, TicketID: &ticketID}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	if err := fx.coordinator.SettlePayment(ctx, paymentID, domain.PaymentStatusPaid); err != nil {
		t.Fatalf("first settlement: %v", err)
	}
	if err := fx.coordinator.SettlePayment(ctx, paymentID, domain.PaymentStatusPaid); err != nil {
		t.Fatalf("retried settlement should succeed as a no-op, got %v", err)
	}

	if got := fx.dispatcher.countByType(events.EventTicketStatusChanged); got != 1 {
		t.Fatalf("expected one status-changed event, got %d", got)
	}
	stored, _ := fx.tickets.GetByID(ctx, ticketID)
	if stored.Status != domain.TicketStatusPaid {
		t.Fatalf("status = %s, want PAID", stored.Status)
	}
}

func TestSettlePaymentFailureKeepsTicket(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	ticketID := "t1"
	ticket := openTicket(ticketID)
	ticket.Status = domain.TicketStatusPaymentRequired
	ticket.RequiresPayment = true
	paymentID := "p1"
	ticket.PaymentID = &paymentID
	fx.seedTicket(t, ticket)
	if err := fx.payments.Create(ctx, &domain.Payment{ID: paymentID, Status: domain.PaymentStatusCanceled, TicketID: &ticketID}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	if err := fx.coordinator.SettlePayment(ctx, paymentID, domain.PaymentStatusCanceled); err != nil {
		t.Fatalf("canceled settlement: %v", err)
	}

	stored, _ := fx.tickets.GetByID(ctx, ticketID)
	if stored.Status != domain.TicketStatusPaymentRequired {
		t.Fatalf("status = %s, want PAYMENT_REQUIRED", stored.Status)
	}
	if fx.dispatcher.countByType(events.EventPaymentFailed) != 1 {
		t.Fatal("expected one payment-failed event")
	}
	if fx.dispatcher.countByType(events.EventTicketStatusChanged) != 0 {
		t.Fatal("failed settlement must not change status")
	}
}

func TestSettlePaymentMilestoneLinkedIsNoOp(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	milestoneID := "m1"
	if err := fx.payments.Create(ctx, &domain.Payment{ID: "p1", Status: domain.PaymentStatusPaid, MilestoneID: &milestoneID}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	if err := fx.coordinator.SettlePayment(ctx, "p1", domain.PaymentStatusPaid); err != nil {
		t.Fatalf("milestone settlement: %v", err)
	}
	if len(fx.dispatcher.events) != 0 {
		t.Fatal("milestone settlement should not publish ticket events")
	}
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.seedTicket(t, openTicket("t1"))
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	reason := "duplicate request"

	targets := []struct {
		status domain.TicketStatus
		reason *string
	}{
		{domain.TicketStatusAccepted, nil},
		{domain.TicketStatusRejected, &reason},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func(i int, status domain.TicketStatus, reason *string) {
			defer wg.Done()
			_, errs[i] = fx.coordinator.ChangeTicketStatus(context.Background(), "t1", status, admin, reason)
		}(i, target.status, target.reason)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		switch CodeOf(err) {
		case FailureInvalidTransition, FailureTerminalState, FailureBusy:
		default:
			t.Fatalf("unexpected failure: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winner, got %d", succeeded)
	}
	if fx.dispatcher.countByType(events.EventTicketStatusChanged) != 1 {
		t.Fatal("expected exactly one status-changed event")
	}
}

func TestChangeTicketStatusBusyOnHeldLock(t *testing.T) {
	locker := NewMemoryLocker()
	fx := &coordinatorFixture{
		tickets:     newFakeTicketRepo(openTicket("t1")),
		validations: newFakeValidationRepo(),
		payments:    newFakePaymentRepo(),
		tasks:       newFakeTaskRepo(),
		dispatcher:  &captureDispatcher{},
	}
	fx.coordinator = NewCoordinator(Dependencies{
		TicketRepo:     fx.tickets,
		ValidationRepo: fx.validations,
		PaymentRepo:    fx.payments,
		TaskRepo:       fx.tasks,
		Locker:         locker,
		Dispatcher:     fx.dispatcher,
		LockTimeout:    50 * time.Millisecond,
	})

	release, err := locker.Acquire(context.Background(), "ticket:t1")
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer release()

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	_, err = fx.coordinator.ChangeTicketStatus(context.Background(), "t1", domain.TicketStatusAccepted, admin, nil)
	if CodeOf(err) != FailureBusy {
		t.Fatalf("expected BUSY, got %v", err)
	}
}

func TestIsPaymentSatisfiedForMilestone(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()

	milestoneID := "m1"
	paymentID := "p1"
	if err := fx.payments.Create(ctx, &domain.Payment{ID: paymentID, Status: domain.PaymentStatusPending, MilestoneID: &milestoneID}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	free := &domain.Milestone{ID: "m0", ProjectID: "project-1", Title: "kickoff"}
	ok, err := fx.coordinator.IsPaymentSatisfied(ctx, free.PaymentRef())
	if err != nil || !ok {
		t.Fatalf("milestone without payment requirement: ok=%v, err=%v", ok, err)
	}

	billed := &domain.Milestone{ID: milestoneID, ProjectID: "project-1", Title: "launch", RequiresPayment: true, PaymentID: &paymentID}
	ok, err = fx.coordinator.IsPaymentSatisfied(ctx, billed.PaymentRef())
	if err != nil || ok {
		t.Fatalf("milestone with pending payment: ok=%v, err=%v", ok, err)
	}

	if _, err := fx.payments.SettleStatus(ctx, paymentID, domain.PaymentStatusPaid, time.Now()); err != nil {
		t.Fatalf("settle payment: %v", err)
	}
	ok, err = fx.coordinator.IsPaymentSatisfied(ctx, billed.PaymentRef())
	if err != nil || !ok {
		t.Fatalf("milestone with settled payment: ok=%v, err=%v", ok, err)
	}
}

func TestValidateMilestoneDualSignoff(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()
	if err := fx.validations.Create(ctx, emptyValidation("m1")); err != nil {
		t.Fatalf("seed validation: %v", err)
	}

	mv, err := fx.coordinator.ValidateMilestone(ctx, "m1", domain.RoleAdmin, "admin-1", strPtr("Looks good"))
	if err != nil {
		t.Fatalf("admin sign-off: %v", err)
	}
	if mv.Admin == nil || mv.Client != nil {
		t.Fatal("only the admin slot should be set")
	}

	ok, err := fx.coordinator.IsMilestoneFullyValidated(ctx, "m1")
	if err != nil || ok {
		t.Fatalf("half-validated milestone reported as full (ok=%v, err=%v)", ok, err)
	}

	// Duplicate sign-off leaves the stored record alone.
	if _, err := fx.coordinator.ValidateMilestone(ctx, "m1", domain.RoleAdmin, "admin-2", nil); CodeOf(err) != FailureAlreadyValidated {
		t.Fatalf("expected ALREADY_VALIDATED, got %v", err)
	}
	stored, _ := fx.validations.GetByMilestone(ctx, "m1")
	if stored.Admin.ValidatorID != "admin-1" {
		t.Fatal("duplicate sign-off overwrote the stored slot")
	}

	mv, err = fx.coordinator.ValidateMilestone(ctx, "m1", domain.RoleClient, "client-1", nil)
	if err != nil {
		t.Fatalf("client sign-off: %v", err)
	}
	if !mv.FullyValidated() {
		t.Fatal("both slots set but not fully validated")
	}

	ok, err = fx.coordinator.IsMilestoneFullyValidated(ctx, "m1")
	if err != nil || !ok {
		t.Fatalf("fully validated milestone reported as partial (ok=%v, err=%v)", ok, err)
	}
	if fx.dispatcher.countByType(events.EventMilestoneSlotValidated) != 2 {
		t.Fatal("expected two slot-validated events")
	}
	if fx.dispatcher.countByType(events.EventMilestoneFullyValidated) != 1 {
		t.Fatal("expected exactly one fully-validated event")
	}
}

func TestValidateMilestoneRejectedCommentChangesNothing(t *testing.T) {
	fx := newCoordinatorFixture(t)
	ctx := context.Background()
	if err := fx.validations.Create(ctx, emptyValidation("m1")); err != nil {
		t.Fatalf("seed validation: %v", err)
	}

	long := make([]rune, MaxValidationCommentLength+1)
	for i := range long {
		long[i] = 'x'
	}
	comment := string(long)

	_, err := fx.coordinator.ValidateMilestone(ctx, "m1", domain.RoleClient, "client-1", &comment)
	if CodeOf(err) != FailureCommentTooLong {
		t.Fatalf("expected COMMENT_TOO_LONG, got %v", err)
	}
	stored, _ := fx.validations.GetByMilestone(ctx, "m1")
	if stored.Client != nil {
		t.Fatal("rejected comment set the slot anyway")
	}
	if len(fx.dispatcher.events) != 0 {
		t.Fatal("rejected sign-off published events")
	}
}
