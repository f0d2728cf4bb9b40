package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/survey"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running story-grid API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	NeedsOverride     string // If set, overrides the needs of every story step
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file. Unknown keys are an
// error.
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite, replacing a sequence with
// the cases it names (recursively, relative to casesDir).
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}
	if !suite.IsSequence() {
		return []TestJob{{Name: suite.Name, Suite: suite, CaseFile: filename}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// Seed the draft (the API generates the respondent id)
	seeded, err := CreateDraft(ctx, r.Client, r.BaseURL, suite.Seed)
	if err != nil {
		result.Error = fmt.Errorf("failed to seed draft: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.RespondentID = seeded.RespondentID

	// Values are carried across steps so each put only names what it changes
	current := make(map[string]any, len(seeded.Values))
	for k, v := range seeded.Values {
		current[k] = v
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.executeStep(ctx, seeded.RespondentID, step, current, suite.Seed)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// executeStep performs one request and checks its expectations. current is
// updated with the stored values after every successful put.
func (r *Runner) executeStep(ctx context.Context, respondentID string, step TestStep, current map[string]any, seed map[string]any) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	var (
		resp       Response
		err        error
		wantStatus int
		doc        *survey.Document
	)
	switch step.Action {
	case ActionReset, ActionPut:
		next := maps.Clone(current)
		if step.Action == ActionReset {
			result.IsReset = true
			next = maps.Clone(seed)
			if next == nil {
				next = map[string]any{}
			}
		}
		maps.Copy(next, step.Values)
		resp, err = PutDraft(ctx, r.Client, r.BaseURL, respondentID, next)
		wantStatus = http.StatusOK
	case ActionGet:
		resp, err = Do(ctx, r.Client, http.MethodGet, draftURL(r.BaseURL, respondentID, ""), nil)
		wantStatus = http.StatusOK
	case ActionExport:
		resp, err = Do(ctx, r.Client, http.MethodGet, draftURL(r.BaseURL, respondentID, "export"), nil)
		wantStatus = http.StatusOK
	case ActionStory:
		needs := step.Needs
		if r.NeedsOverride != "" {
			needs = r.NeedsOverride
		}
		q := url.Values{"field": {step.Field}, "needs": {needs}}
		u := draftURL(r.BaseURL, respondentID, "story") + "?" + q.Encode()
		resp, err = Do(ctx, r.Client, http.MethodGet, u, nil)
		wantStatus = http.StatusOK
	case ActionDelete:
		resp, err = Do(ctx, r.Client, http.MethodDelete, draftURL(r.BaseURL, respondentID, ""), nil)
		wantStatus = http.StatusNoContent
	default:
		return fail(fmt.Errorf("unknown action %q", step.Action))
	}
	if err != nil {
		return fail(err)
	}
	result.ResponseText = string(resp.Body)

	if step.Expectations.Status != nil {
		wantStatus = *step.Expectations.Status
	}
	if resp.Status != wantStatus {
		return fail(fmt.Errorf("expected status %d, got %d: %s", wantStatus, resp.Status, string(resp.Body)))
	}

	if resp.Status == http.StatusOK {
		switch step.Action {
		case ActionPut, ActionReset, ActionGet, ActionExport:
			d, err := survey.DecodeDocument(resp.Body)
			if err != nil {
				return fail(fmt.Errorf("failed to decode draft: %w", err))
			}
			doc = &d
			if step.Action != ActionGet && step.Action != ActionExport {
				clear(current)
				for k, v := range d.Values {
					current[k] = v
				}
			}
		case ActionStory:
			var story struct {
				Story string `json:"story"`
			}
			if err := json.Unmarshal(resp.Body, &story); err != nil {
				return fail(fmt.Errorf("failed to decode story: %w", err))
			}
			result.ResponseText = story.Story
		}
	}

	if err := checkExpectations(step.Expectations, doc, resp, result.ResponseText); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the expectations against a step's response.
// doc is nil for steps that returned no draft.
func checkExpectations(exp Expectations, doc *survey.Document, resp Response, responseText string) error {
	if (len(exp.Values) > 0 || len(exp.Grids) > 0) && doc == nil {
		return fmt.Errorf("expected a draft in the response")
	}

	for key, want := range exp.Values {
		got, exists := doc.Values[key]
		if !exists {
			return fmt.Errorf("expected field %s to be set, but it doesn't exist", key)
		}
		if got != want {
			return fmt.Errorf("expected field %s to be %q, got %q", key, want, got)
		}
	}

	for key, want := range exp.Grids {
		var fd grid.FormData
		if err := json.Unmarshal([]byte(doc.Values[key]), &fd); err != nil {
			return fmt.Errorf("field %s is not story grid data: %w", key, err)
		}
		if want.ActiveStep != nil && fd.ActiveStep != *want.ActiveStep {
			return fmt.Errorf("expected %s active step %d, got %d", key, *want.ActiveStep, fd.ActiveStep)
		}
		if want.TotalElements != nil && fd.TotalElements != *want.TotalElements {
			return fmt.Errorf("expected %s total elements %d, got %d", key, *want.TotalElements, fd.TotalElements)
		}
		if want.Types != nil {
			var got []string
			for _, e := range fd.TopRow {
				got = append(got, e.Type)
			}
			for _, e := range fd.BottomRows {
				got = append(got, e.Type)
			}
			expected := slices.Clone(want.Types)
			slices.Sort(got)
			slices.Sort(expected)
			if !slices.Equal(got, expected) {
				return fmt.Errorf("expected %s types %v, got %v", key, want.Types, got)
			}
		}
	}

	if exp.FileName != "" && resp.FileName != exp.FileName {
		return fmt.Errorf("expected export file name %q, got %q", exp.FileName, resp.FileName)
	}

	lowerResponse := strings.ToLower(responseText)
	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	return nil
}
