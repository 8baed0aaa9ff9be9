package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/portal-service/internal/domain"
)

// TaskRepository stores tasks created from converted tickets.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Task, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository builds repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (id, project_id, ticket_id, title)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		task.ID,
		task.ProjectID,
		task.TicketID,
		task.Title,
	).Scan(&task.CreatedAt)
}

func (r *taskRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Task, error) {
	const query = `
        SELECT id, project_id, ticket_id, title, created_at
        FROM tasks WHERE ticket_id=$1`
	var task domain.Task
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&task.ID,
		&task.ProjectID,
		&task.TicketID,
		&task.Title,
		&task.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
