package diagnostics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/musiphil/gobazel/pkg/optionprocessor"
)

func TestReportSealErrorAndFlushWritesJUnit(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir)

	r.ReportSealError("//pkg/good:bin", nil)
	r.ReportSealError("//pkg/bad:bin", &testViolation{msg: "orphan artifact"})

	if !r.HasFailures() {
		t.Fatalf("expected HasFailures() = true")
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "junit_gobazel.xml"))
	if err != nil {
		t.Fatalf("reading junit artifact: %v", err)
	}
	if !strings.Contains(string(data), "//pkg/bad:bin") {
		t.Fatalf("junit artifact missing failing case name: %s", data)
	}
	if !strings.Contains(string(data), "orphan artifact") {
		t.Fatalf("junit artifact missing failure message: %s", data)
	}
}

func TestFlushIsNoOpWithoutArtifactDir(t *testing.T) {
	r := NewReporter("")
	r.ReportSealError("//pkg/x:bin", &testViolation{msg: "boom"})
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestReportOptionProcessorErrorCarriesExitCode(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir)

	r.ReportOptionProcessorError(&optionprocessor.UserConfigError{
		Code:    optionprocessor.ExitBadArgv,
		Message: "Import loop detected: a -> b -> a",
	})
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "junit_gobazel.xml"))
	if err != nil {
		t.Fatalf("reading junit artifact: %v", err)
	}
	if !strings.Contains(string(data), "exit 2") {
		t.Fatalf("expected exit code 2 rendered in case name: %s", data)
	}
}

type testViolation struct{ msg string }

func (e *testViolation) Error() string { return e.msg }
