package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/musiphil/gobazel/pkg/analysis"
	"github.com/musiphil/gobazel/pkg/artifact"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	contents := `
targets:
  - label: "//pkg/tool:run"
    srcs: ["run.sh"]
    out: "run"
  - label: "//pkg/tool:helper"
    srcs: ["helper.sh"]
    tools: ["bash"]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(m.Targets))
	}
	if m.Targets[0].Label != "//pkg/tool:run" || m.Targets[0].Out != "run" {
		t.Fatalf("unexpected first target: %#v", m.Targets[0])
	}
	if len(m.Targets[1].Tools) != 1 || m.Targets[1].Tools[0] != "bash" {
		t.Fatalf("unexpected tools on second target: %#v", m.Targets[1])
	}
}

func TestAnalyzeRegistersActionAndSealsCleanly(t *testing.T) {
	owner := artifact.Owner{Label: "//pkg/tool:run"}
	env := analysis.New(analysis.Config{
		Owner:                owner,
		AllowRegisterActions: true,
		EmbeddedTools:        map[string]*artifact.Artifact{"bash": artifact.NewFactory().GetSourceArtifact("usr/bin/bash", owner)},
	})

	target := Target{Label: "//pkg/tool:run", Srcs: []string{"run.sh"}, Out: "run", Tools: []string{"bash"}}
	out, err := target.Analyze(env)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.ExecPath() != "bin/run" {
		t.Fatalf("ExecPath = %q, want bin/run", out.ExecPath())
	}

	if err := env.Seal(target.Label); err != nil {
		t.Fatalf("Seal: %v (orphan check should pass since the Spawn action outputs `out`)", err)
	}
	if len(env.GetRegisteredActions()) != 1 {
		t.Fatalf("expected exactly one registered action")
	}
}

func TestAnalyzeMissingToolErrors(t *testing.T) {
	owner := artifact.Owner{Label: "//pkg/tool:broken"}
	env := analysis.New(analysis.Config{Owner: owner, AllowRegisterActions: true})

	target := Target{Label: "//pkg/tool:broken", Out: "broken", Tools: []string{"missing-tool"}}
	if _, err := target.Analyze(env); err == nil {
		t.Fatalf("expected an error for an unresolved embedded tool")
	}
}
