// Package action defines the Action contract the Analysis Environment
// tracks: an opaque build step exposing its outputs, mnemonic, and type for
// diagnostics. Execution semantics are deliberately absent — running an
// action is out of scope for this repository (spec Non-goals).
package action

import "github.com/musiphil/gobazel/pkg/artifact"

// Action is a registered build step as seen from analysis. The output sets
// of distinct actions are expected to be disjoint; that invariant is
// enforced by whatever constructs the graph (out of scope here), not by
// this package.
type Action interface {
	// Outputs returns the artifacts this action generates.
	Outputs() []*artifact.Artifact
	// Mnemonic is a short machine-stable label ("CppCompile", "ShBinary").
	Mnemonic() string
	// TypeName is the concrete action type, used only in diagnostics.
	TypeName() string
}

// Spawn is a reference Action for a single subprocess-shaped build step. It
// is enough to drive the rule harness (pkg/rules) and exercise the
// Analysis Environment's bookkeeping end to end; it does not execute
// anything.
type Spawn struct {
	mnemonic string
	outputs  []*artifact.Artifact
}

// NewSpawn constructs a Spawn action with the given mnemonic and outputs.
func NewSpawn(mnemonic string, outputs ...*artifact.Artifact) *Spawn {
	return &Spawn{mnemonic: mnemonic, outputs: outputs}
}

func (s *Spawn) Outputs() []*artifact.Artifact { return s.outputs }
func (s *Spawn) Mnemonic() string              { return s.mnemonic }
func (s *Spawn) TypeName() string              { return "Spawn" }

// HasOutput reports whether a is among act's declared outputs.
func HasOutput(act Action, a *artifact.Artifact) bool {
	for _, o := range act.Outputs() {
		if o == a {
			return true
		}
	}
	return false
}
