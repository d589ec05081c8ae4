package core

import (
	"time"
)

// StepResult captures one page-level step of a scenario
type StepResult struct {
	Index     int           `json:"index"` // 0-based position in scenario
	Name      string        `json:"name"`  // e.g. "Accept terms and conditions"
	Status    Status        `json:"status"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// ScenarioResult captures the complete outcome of executing a scenario
type ScenarioResult struct {
	// Identity
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Story       string   `json:"story,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Platform info (captured once per scenario)
	PlatformInfo *PlatformInfo `json:"platformInfo,omitempty"`

	// Status
	Status   Status        `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	Steps []StepResult `json:"steps,omitempty"`

	// Error info (if scenario failed)
	Error       string       `json:"error,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SuiteResult captures the complete outcome of executing multiple scenarios
type SuiteResult struct {
	// Identity
	Name        string `json:"name"`
	RunID       string `json:"runId"` // Unique execution ID
	Environment string `json:"environment,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Scenarios []ScenarioResult `json:"scenarios"`

	// Summary
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// ComputeSummary calculates counts from the Scenarios slice
func (s *SuiteResult) ComputeSummary() {
	s.Total = len(s.Scenarios)
	s.Passed = 0
	s.Failed = 0
	s.Errored = 0
	s.Skipped = 0

	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		}
	}
}

// Success returns true if all scenarios passed
func (s *SuiteResult) Success() bool {
	for _, sc := range s.Scenarios {
		if !sc.Status.IsSuccess() {
			return false
		}
	}
	return len(s.Scenarios) > 0
}
