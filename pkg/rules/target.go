// Package rules provides a stub rule implementation (C10): a
// ShBinaryRule-shaped target definition, loaded from a YAML fixture, that
// drives an *analysis.Environment the way real rule logic would — request
// derived artifacts and register one generating Spawn action per output,
// leaving the seal to the caller. It implements no build semantics of its own (spec Non-goals: rule
// evaluation semantics); it exists only to give the Analysis Environment a
// realistic caller to exercise end to end.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/musiphil/gobazel/pkg/action"
	"github.com/musiphil/gobazel/pkg/analysis"
	"github.com/musiphil/gobazel/pkg/artifact"
)

// Target is one ShBinaryRule-shaped build target, as loaded from a YAML
// fixture file.
type Target struct {
	// Label is the target's fully-qualified label, e.g. "//pkg/tool:run".
	Label string `yaml:"label"`
	// Srcs lists source-relative input paths.
	Srcs []string `yaml:"srcs"`
	// Out is the single output this rule produces, relative to the bin
	// root. Empty means "derive one output named after the target".
	Out string `yaml:"out"`
	// Tools lists embedded-tool names this rule needs resolved via
	// Environment.GetEmbeddedToolArtifact.
	Tools []string `yaml:"tools,omitempty"`
}

// Manifest is the top-level shape of a rule fixture file: a flat list of
// targets, the way a small BUILD-file-equivalent would be represented.
type Manifest struct {
	Targets []Target `yaml:"targets"`
}

// LoadManifest reads and parses a YAML rule fixture from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing rule manifest %s: %w", path, err)
	}
	return &m, nil
}

// BinRoot is the single derived root this package's reference rule writes
// outputs under, standing in for a real configuration's bin directory.
var BinRoot = artifact.NewRoot("bin")

// Analyze runs this target's rule logic against env: it requests the
// declared (or derived) output artifact, resolves any required embedded
// tools, registers one Spawn action producing the output, and returns the
// output artifact. Srcs is carried for fixture fidelity but not yet
// resolved against env, since the Environment exposes no source-artifact
// accessor of its own (spec Non-goals: rule evaluation semantics). It does
// not seal env; the caller (pkg/driver) owns the create/mutate/seal
// lifecycle.
func (t Target) Analyze(env *analysis.Environment) (*artifact.Artifact, error) {
	outPath := t.Out
	if outPath == "" {
		outPath = t.Label + ".out"
	}

	out, err := env.GetDerivedArtifact(outPath, BinRoot)
	if err != nil {
		return nil, fmt.Errorf("%s: requesting output artifact: %w", t.Label, err)
	}

	for _, name := range t.Tools {
		if _, err := env.GetEmbeddedToolArtifact(name); err != nil {
			return nil, fmt.Errorf("%s: resolving tool %q: %w", t.Label, name, err)
		}
	}

	if err := env.RegisterAction(action.NewSpawn("ShBinary", out)); err != nil {
		return nil, fmt.Errorf("%s: registering action: %w", t.Label, err)
	}

	return out, nil
}
