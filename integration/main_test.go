//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jwebster45206/cutscene-engine/integration/runner"
)

var caseFlag = flag.String("case", "", "Name of test case to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")

func apiBaseURL() string {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func TestMain(m *testing.M) {
	fmt.Printf("Running Cutscene Engine Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL())
	os.Exit(m.Run())
}

func TestIntegrationSuites(t *testing.T) {
	testRunner := runner.NewRunner(apiBaseURL())
	testRunner.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	testRunner.Logger = func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}

	files, err := discoverTestFiles("cases")
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}

	for _, job := range jobs {
		t.Run(job.Name, func(t *testing.T) {
			fmt.Printf("\n%s\n", job.Name)
			result, err := testRunner.RunSuite(context.Background(), job.Suite)
			if err != nil {
				t.Fatalf("suite failed to run: %v", err)
			}
			for _, res := range result.Results {
				if !res.Success {
					t.Errorf("%s: %v", res.StepName, res.Error)
				}
			}
		})
	}
}

// discoverTestFiles returns case files, or just the one named by -case.
// Sequences are skipped unless named, so their cases are not run twice.
func discoverTestFiles(dir string) ([]string, error) {
	if *caseFlag != "" {
		name := *caseFlag
		if filepath.Ext(name) == "" {
			name += ".yaml"
		}
		return []string{filepath.Join(dir, name)}, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		suite, err := runner.LoadTestSuite(m)
		if err != nil {
			return nil, err
		}
		if !suite.IsSequence() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}
