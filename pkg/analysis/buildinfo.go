package analysis

import "github.com/musiphil/gobazel/pkg/artifact"

// WorkspaceStatusProvider is the eager alternative to a Skyframe lookup for
// build-info artifacts (C3). pkg/clusterstatus supplies a concrete,
// Kubernetes-backed implementation; tests use a trivial struct literal.
type WorkspaceStatusProvider interface {
	// StableArtifact is the artifact embedding reproducible workspace
	// status (VCS revision, build user). GetBuildInfoArtifacts returns it
	// whether or not stamping is requested.
	StableArtifact() *artifact.Artifact
	// VolatileArtifact is the artifact embedding data that changes on
	// every build (timestamp). GetBuildInfoArtifacts returns it only when
	// stamping is requested.
	VolatileArtifact() *artifact.Artifact
}

// BuildInfoCollection is the Skyframe node shape fetched by
// GetBuildInfoArtifacts when no eager provider is present: a pair of
// artifact lists keyed by whether build-info should carry volatile data.
type BuildInfoCollection struct {
	// Stamped embeds volatile data (user, date, changelist).
	Stamped []*artifact.Artifact
	// Redacted omits volatile data for reproducibility.
	Redacted []*artifact.Artifact
}

// RuleContext is the narrow slice of rule-context state GetBuildInfoArtifacts
// needs: whether the current target should be stamped. Real rule contexts
// carry far more (out of scope; spec Non-goals: rule evaluation semantics).
type RuleContext struct {
	Stamp         bool
	Configuration string
}
