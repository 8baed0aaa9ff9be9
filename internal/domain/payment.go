package domain

import "time"

// PaymentStatus enumerates payment lifecycle states. Terminal statuses are
// final; the payment subsystem writes them once and the engine only reads.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusCanceled PaymentStatus = "CANCELED"
	PaymentStatusExpired  PaymentStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transition.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCanceled || s == PaymentStatusExpired
}

// Payment is owned by the payment subsystem. The lifecycle engine holds only
// a weak reference (id + last-known status) for gating decisions.
type Payment struct {
	ID          string
	Status      PaymentStatus
	AmountCents int64
	TicketID    *string
	MilestoneID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SettledAt   *time.Time
}

// PaymentRef is a gating view over an entity's payment requirement.
type PaymentRef struct {
	PaymentID *string
	Required  bool
}
