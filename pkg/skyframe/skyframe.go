// Package skyframe models the lazy, memoizing dependency-graph evaluator
// (C2) that the Analysis Environment consults when no eager workspace
// status provider is available. Real Skyframe evaluation, invalidation,
// and scheduling are out of scope here (Non-goals: dependency resolution);
// this package only pins down the narrow contract analysis depends on:
// key lookup that may report "not yet computed".
package skyframe

// Key identifies a node in the dependency graph.
type Key interface {
	String() string
}

// WorkspaceStatusKey is the well-known key for the workspace status node
// analysis asks for when no WorkspaceStatusProvider was supplied directly.
type WorkspaceStatusKey struct{}

func (WorkspaceStatusKey) String() string { return "WORKSPACE_STATUS" }

// BuildInfoKey identifies a BuildInfoCollection node for a given
// (collection key, configuration) pair.
type BuildInfoKey struct {
	CollectionKey string
	Configuration string
}

func (k BuildInfoKey) String() string {
	return "BUILD_INFO:" + k.CollectionKey + "@" + k.Configuration
}

// Environment is the narrow Skyframe contract the Analysis Environment
// relies on: look up a node's value, or learn it has not been computed yet.
type Environment interface {
	// GetValue returns the node's value and true, or (nil, false) if the
	// node has not yet been computed — the caller must treat that as a
	// restart signal, not an error.
	GetValue(key Key) (any, bool)
}

// MapEnvironment is a trivial in-memory Environment, useful for tests and
// for the reference driver where a full incremental evaluator is
// unnecessary.
type MapEnvironment struct {
	values map[string]any
}

// NewMapEnvironment returns an Environment backed by the given key->value
// map, keyed by each Key's String() form.
func NewMapEnvironment(values map[string]any) *MapEnvironment {
	if values == nil {
		values = make(map[string]any)
	}
	return &MapEnvironment{values: values}
}

func (e *MapEnvironment) GetValue(key Key) (any, bool) {
	v, ok := e.values[key.String()]
	return v, ok
}

// Set installs or overwrites a node's value, keyed by key.String().
func (e *MapEnvironment) Set(key Key, value any) {
	e.values[key.String()] = value
}
