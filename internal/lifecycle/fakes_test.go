package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
	"github.com/spec-kit/portal-service/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
	for _, t := range tickets {
		repo.tickets[t.ID] = *t
	}
	return repo
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		result = append(result, ticket)
	}
	return result, nil
}

type fakeValidationRepo struct {
	mu      sync.Mutex
	records map[string]domain.MilestoneValidation // keyed by milestone id
}

func newFakeValidationRepo(records ...*domain.MilestoneValidation) *fakeValidationRepo {
	repo := &fakeValidationRepo{records: make(map[string]domain.MilestoneValidation)}
	for _, mv := range records {
		repo.records[mv.MilestoneID] = cloneValidation(mv)
	}
	return repo
}

func cloneValidation(mv *domain.MilestoneValidation) domain.MilestoneValidation {
	copied := *mv
	if mv.Admin != nil {
		slot := *mv.Admin
		copied.Admin = &slot
	}
	if mv.Client != nil {
		slot := *mv.Client
		copied.Client = &slot
	}
	return copied
}

func (r *fakeValidationRepo) Create(ctx context.Context, mv *domain.MilestoneValidation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mv.CreatedAt = time.Now()
	mv.UpdatedAt = mv.CreatedAt
	r.records[mv.MilestoneID] = cloneValidation(mv)
	return nil
}

func (r *fakeValidationRepo) Update(ctx context.Context, mv *domain.MilestoneValidation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[mv.MilestoneID]; !ok {
		return pgx.ErrNoRows
	}
	mv.UpdatedAt = time.Now()
	r.records[mv.MilestoneID] = cloneValidation(mv)
	return nil
}

func (r *fakeValidationRepo) GetByMilestone(ctx context.Context, milestoneID string) (*domain.MilestoneValidation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mv, ok := r.records[milestoneID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := cloneValidation(&mv)
	return &copied, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]domain.Payment
}

func newFakePaymentRepo(payments ...*domain.Payment) *fakePaymentRepo {
	repo := &fakePaymentRepo{payments: make(map[string]domain.Payment)}
	for _, p := range payments {
		repo.payments[p.ID] = *p
	}
	return repo
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	r.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := payment
	return &copied, nil
}

func (r *fakePaymentRepo) SettleStatus(ctx context.Context, id string, status domain.PaymentStatus, settledAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if payment.Status == domain.PaymentStatusPending {
		payment.Status = status
		payment.SettledAt = &settledAt
		r.payments[id] = payment
		return true, nil
	}
	if payment.Status == status {
		return false, nil
	}
	return false, repository.ErrSettlementConflict
}

type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]domain.Task // keyed by ticket id
	createErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]domain.Task)}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	task.CreatedAt = time.Now()
	r.tasks[task.TicketID] = *task
	return nil
}

func (r *fakeTaskRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := task
	return &copied, nil
}

type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *captureDispatcher) countByType(eventType events.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, event := range d.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func (d *captureDispatcher) lastOfType(eventType events.EventType) (events.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.events) - 1; i >= 0; i-- {
		if d.events[i].Type == eventType {
			return d.events[i], true
		}
	}
	return events.Event{}, false
}
