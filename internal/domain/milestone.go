package domain

import "time"

// Milestone is a project checkpoint that requires dual sign-off before it is
// considered complete.
type Milestone struct {
	ID              string
	ProjectID       string
	Title           string
	AmountCents     int64
	RequiresPayment bool
	PaymentID       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentRef exposes the milestone's payment requirement for gating decisions.
func (m *Milestone) PaymentRef() PaymentRef {
	return PaymentRef{PaymentID: m.PaymentID, Required: m.RequiresPayment}
}

// ValidationSlot records one side's sign-off. A set slot is immutable; the
// record doubles as the audit trail of who validated when.
type ValidationSlot struct {
	ValidatorID string
	Comment     *string
	ValidatedAt time.Time
}

// MilestoneValidation holds the dual sign-off state for one milestone. Both
// slots start empty (nil) and each is written exactly once by its role.
type MilestoneValidation struct {
	ID          string
	MilestoneID string
	Admin       *ValidationSlot
	Client      *ValidationSlot
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Slot returns the slot owned by the given role, or nil for unknown roles.
func (mv *MilestoneValidation) Slot(role Role) *ValidationSlot {
	switch role {
	case RoleAdmin:
		return mv.Admin
	case RoleClient:
		return mv.Client
	}
	return nil
}

// FullyValidated reports whether both sides have signed off.
func (mv *MilestoneValidation) FullyValidated() bool {
	return mv.Admin != nil && mv.Client != nil
}
