package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a complete integration test case. A suite either has
// Steps of its own or sequences other case files.
type TestSuite struct {
	Name  string     `yaml:"name"`
	Steps []TestStep `yaml:"steps,omitempty"`
	Cases []string   `yaml:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep uploads a script, rehearses something, or both
type TestStep struct {
	Name string `yaml:"name,omitempty"`

	// Upload stores Lines under Script before rehearsing
	Script string   `yaml:"script,omitempty"`
	Lines  []string `yaml:"lines,omitempty"`

	// Rehearse queues the uploaded script, or Playlist when set
	Rehearse bool   `yaml:"rehearse,omitempty"`
	Playlist string `yaml:"playlist,omitempty"`

	Expectations Expectations `yaml:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	// Upload result
	Valid     *bool    `yaml:"valid,omitempty"`
	ErrorLine *int     `yaml:"error_line,omitempty"`
	Duration  *float64 `yaml:"duration,omitempty"`
	Entities  []string `yaml:"entities,omitempty"`

	// Rehearsal report
	OK       *bool    `yaml:"ok,omitempty"`
	Captions []string `yaml:"captions,omitempty"`
	Sounds   []string `yaml:"sounds,omitempty"`
	Song     *string  `yaml:"song,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	SessionID uuid.UUID
	Duration  time.Duration
}

// Passed reports whether every step succeeded
func (r TestRunResult) Passed() bool {
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}
