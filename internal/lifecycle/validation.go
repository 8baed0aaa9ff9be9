package lifecycle

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spec-kit/portal-service/internal/domain"
	"github.com/spec-kit/portal-service/internal/events"
)

// MaxValidationCommentLength bounds sign-off comments.
const MaxValidationCommentLength = 500

// MilestoneValidationTracker resolves the dual sign-off protocol for one
// milestone. Admin and client validations are independent, order-insensitive
// writes: each slot is set exactly once and a set slot is immutable, so a
// dispute on one side never erases the other side's sign-off.
type MilestoneValidationTracker struct{}

// NewMilestoneValidationTracker constructs the tracker.
func NewMilestoneValidationTracker() *MilestoneValidationTracker {
	return &MilestoneValidationTracker{}
}

// SubmitValidation sets the role's slot on the in-memory record. The first
// returned event is always MilestoneSlotValidated; when the submission
// completes the pair, MilestoneFullyValidated follows it, emitted exactly
// once regardless of which role signed off first.
func (tr *MilestoneValidationTracker) SubmitValidation(mv *domain.MilestoneValidation, role domain.Role, validatorID string, comment *string) ([]events.Event, error) {
	if role != domain.RoleAdmin && role != domain.RoleClient {
		return nil, &Failure{Code: FailureForbidden, Detail: fmt.Sprintf("role %s cannot validate milestones", role)}
	}
	if mv.Slot(role) != nil {
		return nil, alreadyValidated(role, mv.MilestoneID)
	}
	if comment != nil {
		if length := utf8.RuneCountInString(*comment); length > MaxValidationCommentLength {
			return nil, commentTooLong(length)
		}
	}

	now := time.Now()
	slot := &domain.ValidationSlot{ValidatorID: validatorID, Comment: comment, ValidatedAt: now}
	switch role {
	case domain.RoleAdmin:
		mv.Admin = slot
	case domain.RoleClient:
		mv.Client = slot
	}

	emitted := []events.Event{{
		ID:        uuid.NewString(),
		Type:      events.EventMilestoneSlotValidated,
		EntityID:  mv.MilestoneID,
		Actor:     events.Actor{UserID: &validatorID, Role: &role},
		Timestamp: now,
		Payload: events.MilestoneSlotValidatedPayload{
			Role:        role,
			ValidatorID: validatorID,
			Comment:     comment,
		},
	}}

	if mv.FullyValidated() {
		emitted = append(emitted, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventMilestoneFullyValidated,
			EntityID:  mv.MilestoneID,
			Actor:     events.Actor{UserID: &validatorID, Role: &role},
			Timestamp: now,
			Payload: events.MilestoneFullyValidatedPayload{
				AdminValidatedAt:  mv.Admin.ValidatedAt,
				ClientValidatedAt: mv.Client.ValidatedAt,
			},
		})
	}
	return emitted, nil
}

// IsFullyValidated is a pure read over the dual sign-off state.
func (tr *MilestoneValidationTracker) IsFullyValidated(mv *domain.MilestoneValidation) bool {
	return mv.FullyValidated()
}
