package driver

import (
	"context"
	"testing"

	"github.com/musiphil/gobazel/pkg/rules"
)

func TestRunAnalyzesEveryTargetConcurrently(t *testing.T) {
	manifest := &rules.Manifest{
		Targets: []rules.Target{
			{Label: "//pkg/a:bin", Out: "a"},
			{Label: "//pkg/b:bin", Out: "b"},
			{Label: "//pkg/c:bin", Out: "c"},
		},
	}

	d := New()
	results, err := d.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("results[%d].Err = %v, want nil", i, r.Err)
		}
		if r.Output == nil {
			t.Fatalf("results[%d].Output = nil", i)
		}
	}
	if results[0].Output.ExecPath() != "bin/a" {
		t.Fatalf("ExecPath = %q, want bin/a", results[0].Output.ExecPath())
	}
}

func TestRunRecordsPerTargetFailureWithoutAbortingSiblings(t *testing.T) {
	manifest := &rules.Manifest{
		Targets: []rules.Target{
			{Label: "//pkg/good:bin", Out: "good"},
			{Label: "//pkg/bad:bin", Out: "bad", Tools: []string{"missing"}},
		},
	}

	d := New()
	results, err := d.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("results[0].Err = %v, want nil", results[0].Err)
	}
	if results[1].Err == nil {
		t.Fatalf("results[1].Err = nil, want an unresolved-tool error")
	}
}
