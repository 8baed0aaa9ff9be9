package lifecycle

import (
	"errors"
	"fmt"

	"github.com/spec-kit/portal-service/internal/domain"
)

// FailureCode identifies a typed engine failure. The boundary layer translates
// codes into user-facing responses; the engine never formats human-readable
// text beyond the diagnostic Error() string.
type FailureCode string

const (
	FailureInvalidTransition       FailureCode = "INVALID_TRANSITION"
	FailureForbidden               FailureCode = "FORBIDDEN"
	FailureReasonRequired          FailureCode = "REASON_REQUIRED"
	FailureTerminalState           FailureCode = "TERMINAL_STATE"
	FailurePaymentPending          FailureCode = "PAYMENT_PENDING"
	FailureAlreadyValidated        FailureCode = "ALREADY_VALIDATED"
	FailureCommentTooLong          FailureCode = "COMMENT_TOO_LONG"
	FailureBusy                    FailureCode = "BUSY"
	FailureCollaboratorUnavailable FailureCode = "COLLABORATOR_UNAVAILABLE"
)

// Failure is the typed error returned by engine operations.
type Failure struct {
	Code   FailureCode
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Detail, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// CodeOf extracts the failure code from an error chain, or "" if the error is
// not an engine failure.
func CodeOf(err error) FailureCode {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Code
	}
	return ""
}

func invalidTransition(from, to domain.TicketStatus) error {
	return &Failure{Code: FailureInvalidTransition, Detail: fmt.Sprintf("%s -> %s", from, to)}
}

func terminalState(status domain.TicketStatus) error {
	return &Failure{Code: FailureTerminalState, Detail: string(status)}
}

func forbidden(role domain.Role, from, to domain.TicketStatus) error {
	return &Failure{Code: FailureForbidden, Detail: fmt.Sprintf("role %s on %s -> %s", role, from, to)}
}

func reasonRequired(to domain.TicketStatus) error {
	return &Failure{Code: FailureReasonRequired, Detail: string(to)}
}

func paymentPending(ticketID string) error {
	return &Failure{Code: FailurePaymentPending, Detail: ticketID}
}

func alreadyValidated(role domain.Role, milestoneID string) error {
	return &Failure{Code: FailureAlreadyValidated, Detail: fmt.Sprintf("%s slot on milestone %s", role, milestoneID)}
}

func commentTooLong(length int) error {
	return &Failure{Code: FailureCommentTooLong, Detail: fmt.Sprintf("%d chars, max %d", length, MaxValidationCommentLength)}
}

func busy(key string) error {
	return &Failure{Code: FailureBusy, Detail: key}
}

func collaboratorUnavailable(op string, err error) error {
	return &Failure{Code: FailureCollaboratorUnavailable, Detail: op, Err: err}
}
