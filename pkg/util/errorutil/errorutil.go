package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/portal-service/internal/lifecycle"
)

// DomainError standardizes application errors at the HTTP boundary.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// lifecycleStatus maps engine failure codes to HTTP statuses and boundary
// messages. The engine itself never formats user-facing text.
var lifecycleStatus = map[lifecycle.FailureCode]struct {
	status  int
	message string
}{
	lifecycle.FailureInvalidTransition:       {http.StatusConflict, "status transition not allowed"},
	lifecycle.FailureForbidden:               {http.StatusForbidden, "actor role not permitted"},
	lifecycle.FailureReasonRequired:          {http.StatusBadRequest, "a reason is required for this transition"},
	lifecycle.FailureTerminalState:           {http.StatusConflict, "ticket is closed"},
	lifecycle.FailurePaymentPending:          {http.StatusPaymentRequired, "linked payment is not settled"},
	lifecycle.FailureAlreadyValidated:        {http.StatusConflict, "milestone already validated by this role"},
	lifecycle.FailureCommentTooLong:          {http.StatusBadRequest, "validation comment too long"},
	lifecycle.FailureBusy:                    {http.StatusConflict, "entity is busy, retry shortly"},
	lifecycle.FailureCollaboratorUnavailable: {http.StatusServiceUnavailable, "a backing service is unavailable"},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if code := lifecycle.CodeOf(err); code != "" {
		mapping, ok := lifecycleStatus[code]
		if !ok {
			mapping.status = http.StatusInternalServerError
			mapping.message = "internal server error"
		}
		return &DomainError{
			Code:       string(code),
			Message:    mapping.message,
			HTTPStatus: mapping.status,
			Err:        err,
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
