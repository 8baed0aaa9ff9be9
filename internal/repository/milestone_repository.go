package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/portal-service/internal/domain"
)

// MilestoneRepository encapsulates milestone persistence.
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *domain.Milestone) error
	Update(ctx context.Context, milestone *domain.Milestone) error
	GetByID(ctx context.Context, id string) (*domain.Milestone, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error)
}

type milestoneRepository struct {
	pool *pgxpool.Pool
}

// NewMilestoneRepository builds repository.
func NewMilestoneRepository(pool *pgxpool.Pool) MilestoneRepository {
	return &milestoneRepository{pool: pool}
}

func (r *milestoneRepository) Create(ctx context.Context, milestone *domain.Milestone) error {
	const query = `
        INSERT INTO milestones (id, project_id, title, amount_cents, requires_payment, payment_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		milestone.ID,
		milestone.ProjectID,
		milestone.Title,
		milestone.AmountCents,
		milestone.RequiresPayment,
		milestone.PaymentID,
	).Scan(&milestone.CreatedAt, &milestone.UpdatedAt)
}

func (r *milestoneRepository) Update(ctx context.Context, milestone *domain.Milestone) error {
	const query = `
        UPDATE milestones SET title=$1, amount_cents=$2, requires_payment=$3, payment_id=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		milestone.Title,
		milestone.AmountCents,
		milestone.RequiresPayment,
		milestone.PaymentID,
		milestone.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *milestoneRepository) GetByID(ctx context.Context, id string) (*domain.Milestone, error) {
	const query = `
        SELECT id, project_id, title, amount_cents, requires_payment, payment_id, created_at, updated_at
        FROM milestones WHERE id=$1`
	var milestone domain.Milestone
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&milestone.ID,
		&milestone.ProjectID,
		&milestone.Title,
		&milestone.AmountCents,
		&milestone.RequiresPayment,
		&milestone.PaymentID,
		&milestone.CreatedAt,
		&milestone.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &milestone, nil
}

func (r *milestoneRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	const query = `
        SELECT id, project_id, title, amount_cents, requires_payment, payment_id, created_at, updated_at
        FROM milestones WHERE project_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Milestone
	for rows.Next() {
		var milestone domain.Milestone
		if err := rows.Scan(
			&milestone.ID,
			&milestone.ProjectID,
			&milestone.Title,
			&milestone.AmountCents,
			&milestone.RequiresPayment,
			&milestone.PaymentID,
			&milestone.CreatedAt,
			&milestone.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, milestone)
	}
	return result, rows.Err()
}
