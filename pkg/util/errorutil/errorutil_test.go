package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/portal-service/internal/lifecycle"
)

func TestToDomainErrorLifecycleCodes(t *testing.T) {
	cases := []struct {
		code   lifecycle.FailureCode
		status int
	}{
		{lifecycle.FailureInvalidTransition, http.StatusConflict},
		{lifecycle.FailureTerminalState, http.StatusConflict},
		{lifecycle.FailureAlreadyValidated, http.StatusConflict},
		{lifecycle.FailureBusy, http.StatusConflict},
		{lifecycle.FailureForbidden, http.StatusForbidden},
		{lifecycle.FailureReasonRequired, http.StatusBadRequest},
		{lifecycle.FailureCommentTooLong, http.StatusBadRequest},
		{lifecycle.FailurePaymentPending, http.StatusPaymentRequired},
		{lifecycle.FailureCollaboratorUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		err := &lifecycle.Failure{Code: tc.code, Detail: "test"}
		got := ToDomainError(err)
		if got.HTTPStatus != tc.status {
			t.Fatalf("%s mapped to %d, want %d", tc.code, got.HTTPStatus, tc.status)
		}
		if got.Code != string(tc.code) {
			t.Fatalf("%s mapped to code %q", tc.code, got.Code)
		}
	}
}

func TestToDomainErrorWrappedFailure(t *testing.T) {
	err := fmt.Errorf("change status: %w", &lifecycle.Failure{Code: lifecycle.FailureBusy, Detail: "ticket:t1"})
	got := ToDomainError(err)
	if got.HTTPStatus != http.StatusConflict || got.Code != string(lifecycle.FailureBusy) {
		t.Fatalf("wrapped failure mapped to %d/%s", got.HTTPStatus, got.Code)
	}
}

func TestToDomainErrorNotFound(t *testing.T) {
	got := ToDomainError(fmt.Errorf("load ticket: %w", pgx.ErrNoRows))
	if got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("ErrNoRows mapped to %d, want 404", got.HTTPStatus)
	}
}

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewForbidden("no access")
	got := ToDomainError(original)
	var want *DomainError
	if !errors.As(original, &want) || got != want {
		t.Fatal("existing DomainError should pass through unchanged")
	}
}

func TestToDomainErrorFallback(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	if got.HTTPStatus != http.StatusInternalServerError || got.Code != "INTERNAL_ERROR" {
		t.Fatalf("unknown error mapped to %d/%s", got.HTTPStatus, got.Code)
	}
}
