package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := ErrWaitTimeout.WithCause(cause)

	got := err.Error()
	if !strings.Contains(got, "wait condition timed out") {
		t.Errorf("Error() = %q, should contain message", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrElementNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrWaitTimeout
	newErr := original.WithMessage("custom timeout message")

	if newErr.Message != "custom timeout message" {
		t.Errorf("Message = %q, want 'custom timeout message'", newErr.Message)
	}
	if original.Message == "custom timeout message" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"locator": "By.id: next",
		"timeout": 5000,
	})

	if newErr.Details["locator"] != "By.id: next" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["locator"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestExecutionError_IsMatchesByCode(t *testing.T) {
	derived := ErrWaitTimeout.WithCause(ErrElementNotFound).WithDetails(map[string]interface{}{"k": "v"})
	wrapped := fmt.Errorf("tap: %w", derived)

	if !errors.Is(wrapped, ErrWaitTimeout) {
		t.Error("errors.Is() should match derived timeout")
	}
	if !errors.Is(wrapped, ErrElementNotFound) {
		t.Error("errors.Is() should find the cause")
	}
	if errors.Is(wrapped, ErrAssertionFailed) {
		t.Error("errors.Is() should not match a different code")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrElementNotFound, ErrCategoryNotFound, "element_not_found"},
		{ErrStaleElement, ErrCategoryNotFound, "stale_element"},
		{ErrAssertionFailed, ErrCategoryAssertion, "assertion_failed"},
		{ErrTextMismatch, ErrCategoryAssertion, "text_mismatch"},
		{ErrWaitTimeout, ErrCategoryTimeout, "wait_timeout"},
		{ErrServerUnreachable, ErrCategoryConnection, "server_unreachable"},
		{ErrSessionNotCreated, ErrCategoryConnection, "session_not_created"},
		{ErrInvalidSession, ErrCategoryConnection, "invalid_session"},
		{ErrInvalidConfig, ErrCategoryConfig, "invalid_config"},
		{ErrMissingRequired, ErrCategoryConfig, "missing_required"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestAssertf(t *testing.T) {
	err := Assertf(12, 11, "seed phrase should contain %d words", 12)

	if err.Message != "seed phrase should contain 12 words" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["expected"] != 12 || err.Details["actual"] != 11 {
		t.Errorf("Details = %v", err.Details)
	}
	if !errors.Is(err, ErrAssertionFailed) {
		t.Error("Assertf() should match ErrAssertionFailed")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{nil, ErrCategoryNone},
		{errors.New("plain"), ErrCategoryUnknown},
		{ErrWaitTimeout, ErrCategoryTimeout},
		{fmt.Errorf("wrapped: %w", ErrMissingRequired), ErrCategoryConfig},
	}
	for _, tt := range tests {
		if got := CategoryOf(tt.err); got != tt.want {
			t.Errorf("CategoryOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
