// Package diagnostics renders analysis and option-processor failures as
// both a human-readable text stream and a JUnit XML artifact, mirroring
// the teacher's writeJUnit (gated on an --artifact-dir-equivalent, one
// file per named suite).
package diagnostics

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/musiphil/gobazel/pkg/analysis"
	"github.com/musiphil/gobazel/pkg/optionprocessor"
)

// Failure is one failed test case's message and full body.
type Failure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// TestCase is one recorded check: a target's orphan-artifact check, or the
// option processor's overall parse.
type TestCase struct {
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
}

// TestSuite groups related TestCases under one name, with precomputed
// Tests/Failures counts the way JUnit consumers expect.
type TestSuite struct {
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	TestCases []TestCase `xml:"testcase"`
}

// TestSuites is the document root, mirroring the teacher's junit.TestSuites
// shape.
type TestSuites struct {
	XMLName xml.Name    `xml:"testsuites"`
	Suites  []TestSuite `xml:"testsuite"`
}

// AddCase appends a passing or failing case to s and keeps its counts
// current.
func (s *TestSuite) AddCase(name, className string, failure error) {
	tc := TestCase{Name: name, ClassName: className}
	if failure != nil {
		tc.Failure = &Failure{Message: failure.Error(), Body: failure.Error()}
		s.Failures++
	}
	s.Tests++
	s.TestCases = append(s.TestCases, tc)
}

// Reporter collects diagnostics for one build invocation and, if
// ArtifactDir is set, writes them out as JUnit XML on Flush.
type Reporter struct {
	ArtifactDir string

	analysisSuite TestSuite
	optionsSuite  TestSuite
}

// NewReporter returns a Reporter that writes JUnit artifacts under dir, or
// only prints (passes to stdout, failures to stderr) if dir is "".
func NewReporter(dir string) *Reporter {
	return &Reporter{
		ArtifactDir:   dir,
		analysisSuite: TestSuite{Name: "analysis"},
		optionsSuite:  TestSuite{Name: "option-processor"},
	}
}

// ReportSealError records target's Seal failure, classifying it as a
// ContractViolation (the orphan-artifact check, per spec §4.1) versus any
// other failure.
func (r *Reporter) ReportSealError(target string, err error) {
	className := "analysis.Seal"
	var violation *analysis.ContractViolation
	if errors.As(err, &violation) {
		className = "analysis.OrphanArtifactCheck"
	}
	r.analysisSuite.AddCase(target, className, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", target, err)
	} else {
		fmt.Fprintf(os.Stdout, "ok   %s\n", target)
	}
}

// ReportOptionProcessorError records a ParseOptions failure, carrying the
// UserConfigError's exit code through to the rendered case name when
// present.
func (r *Reporter) ReportOptionProcessorError(err error) {
	name := "ParseOptions"
	var uce *optionprocessor.UserConfigError
	if errors.As(err, &uce) {
		name = fmt.Sprintf("ParseOptions (exit %d)", int(uce.Code))
	}
	r.optionsSuite.AddCase(name, "optionprocessor.Processor", err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
	}
}

// Flush writes the accumulated suites to ArtifactDir/junit_gobazel.xml, the
// same shape as the teacher's writeJUnit: a no-op if ArtifactDir is unset
// or nothing was recorded.
func (r *Reporter) Flush() error {
	if r.ArtifactDir == "" {
		return nil
	}
	suites := &TestSuites{Suites: []TestSuite{r.analysisSuite, r.optionsSuite}}
	if len(suites.Suites[0].TestCases) == 0 && len(suites.Suites[1].TestCases) == 0 {
		return nil
	}
	out, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.ArtifactDir, "junit_gobazel.xml"), out, 0o640)
}

// HasFailures reports whether any recorded case failed.
func (r *Reporter) HasFailures() bool {
	return r.analysisSuite.Failures > 0 || r.optionsSuite.Failures > 0
}
