// Package analysis implements the per-configured-target analysis
// environment: the facade rule logic uses to request artifacts and
// register actions during the analysis phase, and the sealer that runs a
// structural sanity check over the resulting fragment of the action graph
// once analysis for that target is done.
package analysis

import (
	"fmt"
	"strings"

	"github.com/musiphil/gobazel/pkg/action"
	"github.com/musiphil/gobazel/pkg/artifact"
	"github.com/musiphil/gobazel/pkg/origin"
	"github.com/musiphil/gobazel/pkg/skyframe"
)

// activeState holds everything the Environment needs while it is still
// accepting mutations. sealedState holds only what survives afterward.
// Environment dispatches every operation on which of the two is non-nil,
// modeling the sealed lifecycle as a sum type rather than nulling out
// fields in place (spec §9 design note).
type activeState struct {
	handedOut map[*artifact.Artifact]origin.Origin
	actions   []action.Action
	sink      ErrorSink
	skyframe  skyframe.Environment
}

type sealedState struct {
	actions []action.Action
}

// Config bundles the construction-time parameters for an Environment. Only
// Owner is required; everything else may be left zero-valued as documented
// on the corresponding field.
type Config struct {
	Factory       *artifact.Factory
	Owner         artifact.Owner
	EmbeddedTools map[string]*artifact.Artifact

	WorkspaceStatus WorkspaceStatusProvider // may be nil
	Skyframe        skyframe.Environment    // may be nil

	IsSystemEnv          bool
	ExtendedSanityChecks bool
	AllowRegisterActions bool
	Sink                 ErrorSink // if nil, a BufferedSink is created (or GlobalReporter if IsSystemEnv)
}

// Environment is the per-configured-target facade described in spec §4.1.
// It is not safe for concurrent use from multiple goroutines: exactly one
// goroutine must own an Environment for its entire create -> mutate -> seal
// -> drain lifecycle (spec §5).
type Environment struct {
	factory       *artifact.Factory
	owner         artifact.Owner
	embeddedTools map[string]*artifact.Artifact

	workspaceStatus WorkspaceStatusProvider

	isSystemEnv          bool
	extendedSanityChecks bool
	allowRegisterActions bool

	active *activeState // non-nil while active
	sealed *sealedState // non-nil once sealed
}

// New constructs an Environment in the active state.
func New(cfg Config) *Environment {
	if cfg.Factory == nil {
		cfg.Factory = artifact.NewFactory()
	}
	sink := cfg.Sink
	if sink == nil {
		if cfg.IsSystemEnv {
			sink = &GlobalReporter{}
		} else {
			sink = &BufferedSink{}
		}
	}
	return &Environment{
		factory:              cfg.Factory,
		owner:                cfg.Owner,
		embeddedTools:        cfg.EmbeddedTools,
		workspaceStatus:      cfg.WorkspaceStatus,
		isSystemEnv:          cfg.IsSystemEnv,
		extendedSanityChecks: cfg.ExtendedSanityChecks,
		allowRegisterActions: cfg.AllowRegisterActions,
		active: &activeState{
			handedOut: make(map[*artifact.Artifact]origin.Origin),
			sink:      sink,
			skyframe:  cfg.Skyframe,
		},
	}
}

// Owner returns the configured target that owns this Environment.
func (e *Environment) Owner() artifact.Owner { return e.owner }

func (e *Environment) requireActive(op string) (*activeState, error) {
	if e.active == nil {
		return nil, violationf("analysis environment for %s is sealed: cannot call %s", e.owner, op)
	}
	return e.active, nil
}

func (e *Environment) recordOrigin(a *artifact.Artifact, st *activeState) {
	if _, exists := st.handedOut[a]; exists {
		// R1: re-requesting the same artifact must not overwrite its
		// recorded origin.
		return
	}
	if e.extendedSanityChecks {
		st.handedOut[a] = origin.Capture()
	} else {
		st.handedOut[a] = origin.Sentinel{}
	}
}

// GetDerivedArtifact interns and records a derived artifact under root.
func (e *Environment) GetDerivedArtifact(path string, root artifact.Root) (*artifact.Artifact, error) {
	st, err := e.requireActive("GetDerivedArtifact")
	if err != nil {
		return nil, err
	}
	a := e.factory.GetDerivedArtifact(path, root, e.owner)
	e.recordOrigin(a, st)
	return a, nil
}

// GetFilesetArtifact is the fileset-flavored analogue of GetDerivedArtifact.
func (e *Environment) GetFilesetArtifact(path string, root artifact.Root) (*artifact.Artifact, error) {
	st, err := e.requireActive("GetFilesetArtifact")
	if err != nil {
		return nil, err
	}
	a := e.factory.GetFilesetArtifact(path, root, e.owner)
	e.recordOrigin(a, st)
	return a, nil
}

// GetSpecialMetadataArtifact passes through to the factory without
// recording provenance: such artifacts have their provenance managed
// externally, so they are exempt from the orphan check.
func (e *Environment) GetSpecialMetadataArtifact(path string, root artifact.Root, forceConstant, forceDigest bool) (*artifact.Artifact, error) {
	if _, err := e.requireActive("GetSpecialMetadataArtifact"); err != nil {
		return nil, err
	}
	return e.factory.GetSpecialMetadataArtifact(path, root, e.owner, forceConstant, forceDigest), nil
}

// GetEmbeddedToolArtifact resolves name against the embedded-tools bundle
// supplied at construction.
func (e *Environment) GetEmbeddedToolArtifact(name string) (*artifact.Artifact, error) {
	if _, err := e.requireActive("GetEmbeddedToolArtifact"); err != nil {
		return nil, err
	}
	a, ok := e.embeddedTools[name]
	if !ok {
		return nil, fmt.Errorf("no embedded tool artifact registered for %q", name)
	}
	return a, nil
}

// RegisterAction appends act to the registered actions if the Environment
// allows registration; otherwise the call is a deliberate silent no-op, to
// tolerate a preliminary analysis pass whose actions would collide with
// the real pass.
func (e *Environment) RegisterAction(act action.Action) error {
	st, err := e.requireActive("RegisterAction")
	if err != nil {
		return err
	}
	if !e.allowRegisterActions {
		return nil
	}
	st.actions = append(st.actions, act)
	return nil
}

// GetLocalGeneratingAction returns the first registered action whose
// outputs contain a, or nil if none does. Valid only when registration is
// enabled, since otherwise the answer would be misleading.
func (e *Environment) GetLocalGeneratingAction(a *artifact.Artifact) (action.Action, error) {
	st, err := e.requireActive("GetLocalGeneratingAction")
	if err != nil {
		return nil, err
	}
	if !e.allowRegisterActions {
		return nil, violationf("GetLocalGeneratingAction is meaningless when action registration is disabled for %s", e.owner)
	}
	for _, act := range st.actions {
		if action.HasOutput(act, a) {
			return act, nil
		}
	}
	return nil, nil
}

// GetRegisteredActions returns a read-only snapshot of every action
// registered so far, in registration order.
func (e *Environment) GetRegisteredActions() []action.Action {
	if e.active != nil {
		out := make([]action.Action, len(e.active.actions))
		copy(out, e.active.actions)
		return out
	}
	out := make([]action.Action, len(e.sealed.actions))
	copy(out, e.sealed.actions)
	return out
}

// HasErrors reports whether rule logic reported any error to the sink.
// Per I4, a system environment is definitionally free of errors regardless
// of sink contents.
func (e *Environment) HasErrors() bool {
	if e.isSystemEnv {
		return false
	}
	if e.active == nil {
		return false
	}
	return e.active.sink.HasErrors()
}

// ReportError forwards err to the error sink. It does not abort analysis.
func (e *Environment) ReportError(err error) error {
	st, reqErr := e.requireActive("ReportError")
	if reqErr != nil {
		return reqErr
	}
	st.sink.Report(err)
	return nil
}

// GetBuildInfo returns the stable build-info artifact: either directly from
// the configured workspace-status provider, or via a Skyframe lookup,
// surfacing MissingDependency if that node has not been computed yet.
func (e *Environment) GetBuildInfo() (*artifact.Artifact, error) {
	return e.buildInfoArtifact(func(p WorkspaceStatusProvider) *artifact.Artifact { return p.StableArtifact() })
}

// GetBuildChangelist returns the volatile build-info artifact, following
// the same provider-then-Skyframe resolution as GetBuildInfo.
func (e *Environment) GetBuildChangelist() (*artifact.Artifact, error) {
	return e.buildInfoArtifact(func(p WorkspaceStatusProvider) *artifact.Artifact { return p.VolatileArtifact() })
}

func (e *Environment) buildInfoArtifact(pick func(WorkspaceStatusProvider) *artifact.Artifact) (*artifact.Artifact, error) {
	st, err := e.requireActive("GetBuildInfo")
	if err != nil {
		return nil, err
	}
	if e.workspaceStatus != nil {
		return pick(e.workspaceStatus), nil
	}
	if st.skyframe == nil {
		return nil, &MissingDependency{Key: skyframe.WorkspaceStatusKey{}.String()}
	}
	v, ok := st.skyframe.GetValue(skyframe.WorkspaceStatusKey{})
	if !ok {
		return nil, &MissingDependency{Key: skyframe.WorkspaceStatusKey{}.String()}
	}
	provider, ok := v.(WorkspaceStatusProvider)
	if !ok {
		return nil, fmt.Errorf("workspace status node had unexpected type %T", v)
	}
	return pick(provider), nil
}

// GetBuildInfoArtifacts returns the stamped or redacted build-info artifact
// list for a collection key, depending on ctx.Stamp. With an eager provider
// the single stable/volatile artifacts stand in for both lists (there is
// no separate collection concept in that mode); with Skyframe, a
// BuildInfoCollection node is fetched for (key, ctx.Configuration).
func (e *Environment) GetBuildInfoArtifacts(ctx RuleContext, collectionKey string) ([]*artifact.Artifact, error) {
	st, err := e.requireActive("GetBuildInfoArtifacts")
	if err != nil {
		return nil, err
	}
	if e.workspaceStatus != nil {
		if ctx.Stamp {
			return []*artifact.Artifact{e.workspaceStatus.StableArtifact(), e.workspaceStatus.VolatileArtifact()}, nil
		}
		return []*artifact.Artifact{e.workspaceStatus.StableArtifact()}, nil
	}
	if st.skyframe == nil {
		return nil, &MissingDependency{Key: collectionKey}
	}
	key := skyframe.BuildInfoKey{CollectionKey: collectionKey, Configuration: ctx.Configuration}
	v, ok := st.skyframe.GetValue(key)
	if !ok {
		return nil, &MissingDependency{Key: key.String()}
	}
	collection, ok := v.(*BuildInfoCollection)
	if !ok {
		return nil, fmt.Errorf("build info node %s had unexpected type %T", key, v)
	}
	if ctx.Stamp {
		return collection.Stamped, nil
	}
	return collection.Redacted, nil
}

// orphanEntry is one artifact discovered to have no generating action,
// paired with where it was handed out from.
type orphanEntry struct {
	artifact *artifact.Artifact
	origin   origin.Origin
}

// checkForOrphanArtifacts implements spec §4.1's orphan-artifact check: it
// returns the entries (if any) of non-source handed-out artifacts that are
// not among any registered action's outputs.
func checkForOrphanArtifacts(st *activeState) []orphanEntry {
	produced := make(map[*artifact.Artifact]struct{})
	for _, act := range st.actions {
		for _, out := range act.Outputs() {
			produced[out] = struct{}{}
		}
	}
	var orphans []orphanEntry
	for a, o := range st.handedOut {
		if a.IsSource() {
			continue
		}
		if _, ok := produced[a]; !ok {
			orphans = append(orphans, orphanEntry{artifact: a, origin: o})
		}
	}
	return orphans
}

// actionCensus renders every registered action's class, mnemonic, and
// outputs, for the orphan-check failure diagnostic.
func actionCensus(actions []action.Action) string {
	var b strings.Builder
	for _, act := range actions {
		fmt.Fprintf(&b, "  %s (%s):\n", act.TypeName(), act.Mnemonic())
		for _, out := range act.Outputs() {
			fmt.Fprintf(&b, "    %s\n", out.ExecPath())
		}
	}
	return b.String()
}

// Seal transitions the Environment from active to sealed for the given
// target label, running the orphan-artifact check first when registration
// is enabled and no errors have been reported. On success it drops the
// active state, releasing the Skyframe handle, per spec §4.1's "drops
// internal references...to release memory"; if the orphan check fails, the
// Environment stays active and keeps that handle.
func (e *Environment) Seal(target string) error {
	st, err := e.requireActive("Seal")
	if err != nil {
		return err
	}

	if e.allowRegisterActions && !e.HasErrors() {
		if orphans := checkForOrphanArtifacts(st); len(orphans) > 0 {
			var list strings.Builder
			for _, o := range orphans {
				fmt.Fprintf(&list, "%s\n%s\n", o.artifact.ExecPath(), o.origin)
			}
			return violationf(
				"for target %s (%s): These artifacts miss a generating action:\n%s\nRegistered actions:\n%s",
				target, e.owner, list.String(), actionCensus(st.actions))
		}
	}

	e.sealed = &sealedState{actions: st.actions}
	e.active = nil
	return nil
}

// IsSealed reports whether Seal has already succeeded.
func (e *Environment) IsSealed() bool { return e.sealed != nil }
