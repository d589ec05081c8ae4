package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusErrored, "errored"},
		{StatusSkipped, "skipped"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	for _, s := range []Status{StatusPassed, StatusFailed, StatusErrored, StatusSkipped} {
		if !s.IsTerminal() {
			t.Errorf("Status(%s).IsTerminal() = false, want true", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusRunning} {
		if s.IsTerminal() {
			t.Errorf("Status(%s).IsTerminal() = true, want false", s)
		}
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusPassed},
		{"assertion", ErrAssertionFailed, StatusFailed},
		{"not found", ErrElementNotFound, StatusFailed},
		{"timeout", ErrWaitTimeout.WithCause(ErrElementNotFound), StatusErrored},
		{"connection", ErrServerUnreachable, StatusErrored},
		{"plain", errors.New("boom"), StatusErrored},
	}
	for _, tt := range tests {
		if got := StatusFromError(tt.err); got != tt.want {
			t.Errorf("%s: StatusFromError() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryAssertion, "assertion"},
		{ErrCategoryNotFound, "not_found"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConnection, "connection"},
		{ErrCategoryConfig, "config"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.expected {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.expected)
		}
	}
}

func TestSuiteResult_ComputeSummary(t *testing.T) {
	s := &SuiteResult{Scenarios: []ScenarioResult{
		{Name: "a", Status: StatusPassed},
		{Name: "b", Status: StatusFailed},
		{Name: "c", Status: StatusErrored},
		{Name: "d", Status: StatusSkipped},
		{Name: "e", Status: StatusPassed},
	}}
	s.ComputeSummary()

	if s.Total != 5 || s.Passed != 2 || s.Failed != 1 || s.Errored != 1 || s.Skipped != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.Success() {
		t.Error("Success() should be false with failures")
	}
}

func TestSuiteResult_Success(t *testing.T) {
	empty := &SuiteResult{}
	if empty.Success() {
		t.Error("empty suite should not be a success")
	}
	ok := &SuiteResult{Scenarios: []ScenarioResult{{Status: StatusPassed}}}
	if !ok.Success() {
		t.Error("all-passed suite should be a success")
	}
}

func TestArtifactConfig_ShouldCapture(t *testing.T) {
	cfg := DefaultArtifactConfig()
	if !cfg.ShouldCapture(StatusFailed) || !cfg.ShouldCapture(StatusErrored) {
		t.Error("default config should capture on failure")
	}
	if cfg.ShouldCapture(StatusPassed) {
		t.Error("default config should not capture on success")
	}
	if cfg.ShouldCapture(StatusSkipped) {
		t.Error("skipped scenarios never capture")
	}
}

func TestStatus_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(struct {
		Status   Status        `json:"status"`
		Category ErrorCategory `json:"category"`
	}{StatusErrored, ErrCategoryTimeout})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"status":"errored","category":"timeout"}` {
		t.Fatalf("unexpected JSON: %s", data)
	}

	var s Status
	if err := s.UnmarshalText([]byte("failed")); err != nil || s != StatusFailed {
		t.Errorf("UnmarshalText(failed) = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error for unknown status")
	}

	var c ErrorCategory
	if err := c.UnmarshalText([]byte("connection")); err != nil || c != ErrCategoryConnection {
		t.Errorf("UnmarshalText(connection) = %v, %v", c, err)
	}
}
