package runner

import (
	"time"
)

// Step actions
const (
	ActionPut    = "put"
	ActionGet    = "get"
	ActionExport = "export"
	ActionStory  = "story"
	ActionDelete = "delete"
	// ActionReset puts the suite's seed values back, replacing the draft.
	ActionReset = "RESET_DRAFT"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string         `json:"name"`
	Seed  map[string]any `json:"seed,omitempty"`  // Used for regular tests
	Steps []TestStep     `json:"steps,omitempty"` // Used for regular tests
	Cases []string       `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single request against the draft and its expected outcomes.
// Put merges Values into the draft's current values before sending it.
type TestStep struct {
	Name         string         `json:"name,omitempty"`
	Action       string         `json:"action"`
	Values       map[string]any `json:"values,omitempty"` // put only
	Field        string         `json:"field,omitempty"`  // story only
	Needs        string         `json:"needs,omitempty"`  // story only
	Expectations Expectations   `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status *int `json:"status,omitempty"` // Defaults to the action's success status

	// Draft properties, checked against the document the step returned
	Values map[string]string          `json:"values,omitempty"` // Plain field values
	Grids  map[string]GridExpectation `json:"grids,omitempty"`  // Story-grid fields by key

	FileName string `json:"file_name,omitempty"` // Export download name

	// Response Analysis. For story steps the response is the story text.
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
}

// GridExpectation checks the stored form data of one story-grid field
type GridExpectation struct {
	ActiveStep    *int     `json:"active_step,omitempty"`
	TotalElements *int     `json:"total_elements,omitempty"`
	Types         []string `json:"types,omitempty"` // Character types (order independent)
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // True if this was a RESET_DRAFT step (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job          TestJob
	Results      []TestResult
	Error        error
	Duration     time.Duration
	RespondentID string // Draft used for this test
}
