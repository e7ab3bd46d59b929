package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "booking not found"},
			expected: "NOT_FOUND: booking not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeIntegrityFailure,
				Message: "attach failed",
				Err:     errors.New("server selection timeout"),
			},
			expected: "INTEGRITY_FAILURE: attach failed (caused by: server selection timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  *AppError
		code string
	}{
		{"invalid input", InvalidInput("bad"), CodeInvalidInput},
		{"not found", NotFound("Hotel"), CodeNotFound},
		{"unauthorized", Unauthorized("nope"), CodeUnauthorized},
		{"unauthenticated", Unauthenticated("token required"), CodeUnauthenticated},
		{"conflict", Conflict("duplicate"), CodeConflict},
		{"integrity failure", IntegrityFailure("attach", cause), CodeIntegrityFailure},
		{"internal", Internal("oops", cause), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "12345")

	if err.Message != "Booking not found" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Details["id"] != "12345" {
		t.Errorf("expected id '12345', got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Booking" {
		t.Errorf("expected resource 'Booking', got %v", err.Details["resource"])
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	appErr := IntegrityFailure("wrapped", cause)

	if !errors.Is(appErr, cause) {
		t.Errorf("errors.Is should find the cause")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	if got := AsAppError(appErr); got != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	wrapped := fmt.Errorf("service: %w", appErr)
	if got := AsAppError(wrapped); got != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	regular := errors.New("regular error")
	got := AsAppError(regular)
	if got.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal, got %s", got.Code)
	}
	if got.Err != regular {
		t.Errorf("AsAppError() should keep the original error")
	}
}

func TestIsAppErrorAndHasCode(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", Conflict("hotel name taken"))

	if !IsAppError(wrapped) {
		t.Errorf("IsAppError() should see through wrapping")
	}
	if IsAppError(errors.New("plain")) {
		t.Errorf("IsAppError() should be false for plain errors")
	}
	if !HasCode(wrapped, CodeConflict) {
		t.Errorf("HasCode() should match CONFLICT")
	}
	if HasCode(wrapped, CodeNotFound) {
		t.Errorf("HasCode() should not match NOT_FOUND")
	}
}

func TestResponse(t *testing.T) {
	resp := InvalidInput("stay exceeds 3 nights").WithDetails(map[string]any{"field": "checkOut"}).Response()

	if resp.Code != CodeInvalidInput || resp.Message != "stay exceeds 3 nights" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Details["field"] != "checkOut" {
		t.Errorf("details lost: %+v", resp.Details)
	}
}
