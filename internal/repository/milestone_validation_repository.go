package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/portal-service/internal/domain"
)

// MilestoneValidationRepository stores dual sign-off records. Rows persist
// permanently as the validation audit trail.
type MilestoneValidationRepository interface {
	Create(ctx context.Context, mv *domain.MilestoneValidation) error
	Update(ctx context.Context, mv *domain.MilestoneValidation) error
	GetByMilestone(ctx context.Context, milestoneID string) (*domain.MilestoneValidation, error)
}

type milestoneValidationRepository struct {
	pool *pgxpool.Pool
}

// NewMilestoneValidationRepository builds repository.
func NewMilestoneValidationRepository(pool *pgxpool.Pool) MilestoneValidationRepository {
	return &milestoneValidationRepository{pool: pool}
}

func (r *milestoneValidationRepository) Create(ctx context.Context, mv *domain.MilestoneValidation) error {
	const query = `
        INSERT INTO milestone_validations (id, milestone_id)
        VALUES ($1,$2)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query, mv.ID, mv.MilestoneID).Scan(&mv.CreatedAt, &mv.UpdatedAt)
}

func (r *milestoneValidationRepository) Update(ctx context.Context, mv *domain.MilestoneValidation) error {
	const query = `
        UPDATE milestone_validations SET
            admin_validator_id=$1, admin_comment=$2, admin_validated_at=$3,
            client_validator_id=$4, client_comment=$5, client_validated_at=$6,
            updated_at=NOW()
        WHERE id=$7`
	var (
		adminValidator, clientValidator *string
		adminComment, clientComment     *string
		adminAt, clientAt               *time.Time
	)
	if mv.Admin != nil {
		adminValidator = &mv.Admin.ValidatorID
		adminComment = mv.Admin.Comment
		adminAt = &mv.Admin.ValidatedAt
	}
	if mv.Client != nil {
		clientValidator = &mv.Client.ValidatorID
		clientComment = mv.Client.Comment
		clientAt = &mv.Client.ValidatedAt
	}
	cmd, err := r.pool.Exec(ctx, query,
		adminValidator, adminComment, adminAt,
		clientValidator, clientComment, clientAt,
		mv.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *milestoneValidationRepository) GetByMilestone(ctx context.Context, milestoneID string) (*domain.MilestoneValidation, error) {
	const query = `
        SELECT id, milestone_id,
               admin_validator_id, admin_comment, admin_validated_at,
               client_validator_id, client_comment, client_validated_at,
               created_at, updated_at
        FROM milestone_validations WHERE milestone_id=$1`
	var (
		mv                              domain.MilestoneValidation
		adminValidator, clientValidator *string
		adminComment, clientComment     *string
		adminAt, clientAt               *time.Time
	)
	if err := r.pool.QueryRow(ctx, query, milestoneID).Scan(
		&mv.ID,
		&mv.MilestoneID,
		&adminValidator,
		&adminComment,
		&adminAt,
		&clientValidator,
		&clientComment,
		&clientAt,
		&mv.CreatedAt,
		&mv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if adminValidator != nil && adminAt != nil {
		mv.Admin = &domain.ValidationSlot{ValidatorID: *adminValidator, Comment: adminComment, ValidatedAt: *adminAt}
	}
	if clientValidator != nil && clientAt != nil {
		mv.Client = &domain.ValidationSlot{ValidatorID: *clientValidator, Comment: clientComment, ValidatedAt: *clientAt}
	}
	return &mv, nil
}
