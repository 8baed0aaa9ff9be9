package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/portal-service/internal/domain"
)

// ErrSettlementConflict is returned when a payment already carries a
// different terminal status than the one being settled.
var ErrSettlementConflict = errors.New("payment settled with a different status")

// PaymentRepository stores payment records. The lifecycle engine only reads
// them; writes come from checkout initiation and the provider callback.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	// SettleStatus moves a PENDING payment to a terminal status. It returns
	// false without error when the payment already carries the same terminal
	// status, so provider callbacks stay idempotent.
	SettleStatus(ctx context.Context, id string, status domain.PaymentStatus, settledAt time.Time) (bool, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository builds repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (id, status, amount_cents, ticket_id, milestone_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		payment.ID,
		payment.Status,
		payment.AmountCents,
		payment.TicketID,
		payment.MilestoneID,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	const query = `
        SELECT id, status, amount_cents, ticket_id, milestone_id, created_at, updated_at, settled_at
        FROM payments WHERE id=$1`
	var payment domain.Payment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&payment.ID,
		&payment.Status,
		&payment.AmountCents,
		&payment.TicketID,
		&payment.MilestoneID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&payment.SettledAt,
	); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) SettleStatus(ctx context.Context, id string, status domain.PaymentStatus, settledAt time.Time) (bool, error) {
	const query = `
        UPDATE payments SET status=$1, settled_at=$2, updated_at=NOW()
        WHERE id=$3 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, status, settledAt, id)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}
	// Distinguish a retried callback from an unknown payment id.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Status == status {
		return false, nil
	}
	return false, ErrSettlementConflict
}
