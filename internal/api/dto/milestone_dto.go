package dto

import (
	"time"

	"github.com/spec-kit/portal-service/internal/domain"
)

// CreateMilestoneRequest payload.
type CreateMilestoneRequest struct {
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amount_cents"`
}

// ValidateMilestoneRequest payload.
type ValidateMilestoneRequest struct {
	Comment *string `json:"comment,omitempty"`
}

// ValidationSlotResponse represents one side's sign-off.
type ValidationSlotResponse struct {
	ValidatorID string    `json:"validator_id"`
	Comment     *string   `json:"comment,omitempty"`
	ValidatedAt time.Time `json:"validated_at"`
}

// MilestoneResponse response.
type MilestoneResponse struct {
	ID               string                  `json:"id"`
	ProjectID        string                  `json:"project_id"`
	Title            string                  `json:"title"`
	AmountCents      int64                   `json:"amount_cents"`
	RequiresPayment  bool                    `json:"requires_payment"`
	PaymentID        *string                 `json:"payment_id,omitempty"`
	PaymentSatisfied *bool                   `json:"payment_satisfied,omitempty"`
	Admin            *ValidationSlotResponse `json:"admin_validation,omitempty"`
	Client           *ValidationSlotResponse `json:"client_validation,omitempty"`
	FullyValidated   bool                    `json:"fully_validated"`
	CreatedAt        time.Time               `json:"created_at"`
}

// NewValidationSlotResponse maps a domain slot, or nil.
func NewValidationSlotResponse(slot *domain.ValidationSlot) *ValidationSlotResponse {
	if slot == nil {
		return nil
	}
	return &ValidationSlotResponse{
		ValidatorID: slot.ValidatorID,
		Comment:     slot.Comment,
		ValidatedAt: slot.ValidatedAt,
	}
}
