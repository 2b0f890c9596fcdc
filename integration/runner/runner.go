package runner

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running cutscene-engine API
// and worker
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           RehearsalTimeout,
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
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

// RunSuite executes every step of a suite in one session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:       TestJob{Name: suite.Name, Suite: suite},
		Results:   make([]TestResult, 0, len(suite.Steps)),
		SessionID: uuid.New(),
	}

	for i, step := range suite.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		stepStart := time.Now()
		err := r.runStep(ctx, result.SessionID, step)
		result.Results = append(result.Results, TestResult{
			TestName: suite.Name,
			StepName: name,
			Success:  err == nil,
			Error:    err,
			Duration: time.Since(stepStart),
		})
		r.logf("  %s %s (%s)", mark(err == nil), name, time.Since(stepStart).Round(time.Millisecond))
		if err != nil {
			r.logf("      %v", err)
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, sessionID uuid.UUID, step TestStep) error {
	exp := step.Expectations

	if len(step.Lines) > 0 {
		if step.Script == "" {
			return fmt.Errorf("step has lines but no script name")
		}
		up, err := PutScript(ctx, r.Client, r.BaseURL, step.Script, step.Lines)
		if err != nil {
			return err
		}
		if err := checkUpload(exp, up); err != nil {
			return err
		}
	}

	if !step.Rehearse {
		return nil
	}
	kind, name := "script", step.Script
	if step.Playlist != "" {
		kind, name = "playlist", step.Playlist
	}
	requestID, err := PostRehearsal(ctx, r.Client, r.BaseURL, sessionID, kind, name)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	report, err := WaitForReport(waitCtx, r.Client, r.BaseURL, sessionID, requestID)
	if err != nil {
		return err
	}
	return checkReport(exp, report)
}

func checkUpload(exp Expectations, up *UploadResult) error {
	var errs []string
	if exp.Valid != nil && up.Valid != *exp.Valid {
		errs = append(errs, fmt.Sprintf("valid: expected %v, got %v (%s)", *exp.Valid, up.Valid, up.Error))
	}
	if exp.ErrorLine != nil && up.Line != *exp.ErrorLine {
		errs = append(errs, fmt.Sprintf("error line: expected %d, got %d", *exp.ErrorLine, up.Line))
	}
	if exp.Duration != nil && up.Valid && up.Duration != *exp.Duration {
		errs = append(errs, fmt.Sprintf("duration: expected %.2f, got %.2f", *exp.Duration, up.Duration))
	}
	if exp.Entities != nil && !slices.Equal(exp.Entities, up.Entities) {
		errs = append(errs, fmt.Sprintf("entities: expected %v, got %v", exp.Entities, up.Entities))
	}
	return joinErrors(errs)
}

func checkReport(exp Expectations, rep *Report) error {
	var errs []string
	if exp.OK != nil && rep.OK != *exp.OK {
		errs = append(errs, fmt.Sprintf("ok: expected %v, got %v (%s)", *exp.OK, rep.OK, rep.Error))
	}
	if exp.Captions != nil && !slices.Equal(exp.Captions, rep.Captions) {
		errs = append(errs, fmt.Sprintf("captions: expected %q, got %q", exp.Captions, rep.Captions))
	}
	if exp.Sounds != nil && !slices.Equal(exp.Sounds, rep.Sounds) {
		errs = append(errs, fmt.Sprintf("sounds: expected %v, got %v", exp.Sounds, rep.Sounds))
	}
	if exp.Song != nil && rep.Song != *exp.Song {
		errs = append(errs, fmt.Sprintf("song: expected %q, got %q", *exp.Song, rep.Song))
	}
	return joinErrors(errs)
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}
