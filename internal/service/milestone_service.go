package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/lifecycle"
	"github.com/spec-kit/portal-service/internal/repository"
	"github.com/spec-kit/portal-service/pkg/util/errorutil"
)

// MilestoneService manages project checkpoints. Sign-offs are delegated to
// the lifecycle coordinator.
type MilestoneService struct {
	milestones  repository.MilestoneRepository
	validations repository.MilestoneValidationRepository
	coordinator *lifecycle.Coordinator
}

// NewMilestoneService constructs the service.
func NewMilestoneService(milestones repository.MilestoneRepository, validations repository.MilestoneValidationRepository, coordinator *lifecycle.Coordinator) *MilestoneService {
	return &MilestoneService{
		milestones:  milestones,
		validations: validations,
		coordinator: coordinator,
	}
}

// MilestoneCreateInput describes milestone creation payload.
type MilestoneCreateInput struct {
	ProjectID   string
	Title       string
	AmountCents int64
}

// CreateMilestone creates a milestone with an empty dual sign-off record.
func (s *MilestoneService) CreateMilestone(ctx context.Context, actor domain.Actor, input MilestoneCreateInput) (*domain.Milestone, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, errorutil.NewForbidden("only admins create milestones")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title required", nil)
	}

	milestone := &domain.Milestone{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		Title:       title,
		AmountCents: input.AmountCents,
	}
	if err := s.milestones.Create(ctx, milestone); err != nil {
		return nil, err
	}
	mv := &domain.MilestoneValidation{
		ID:          uuid.NewString(),
		MilestoneID: milestone.ID,
	}
	if err := s.validations.Create(ctx, mv); err != nil {
		return nil, err
	}
	return milestone, nil
}

// Validate records the actor's sign-off on the milestone. The engine enforces
// that each role signs exactly once.
func (s *MilestoneService) Validate(ctx context.Context, milestoneID string, actor domain.Actor, comment *string) (*domain.MilestoneValidation, error) {
	return s.coordinator.ValidateMilestone(ctx, milestoneID, actor.Role, actor.ID, comment)
}

// GetMilestone returns the milestone with its sign-off state and whether its
// payment requirement is met.
func (s *MilestoneService) GetMilestone(ctx context.Context, milestoneID string) (*domain.Milestone, *domain.MilestoneValidation, bool, error) {
	milestone, err := s.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, false, err
	}
	mv, err := s.validations.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, nil, false, err
	}
	paymentSatisfied, err := s.coordinator.IsPaymentSatisfied(ctx, milestone.PaymentRef())
	if err != nil {
		return nil, nil, false, err
	}
	return milestone, mv, paymentSatisfied, nil
}

// ListMilestones returns a project's milestones.
func (s *MilestoneService) ListMilestones(ctx context.Context, projectID string) ([]domain.Milestone, error) {
	return s.milestones.ListByProject(ctx, projectID)
}
