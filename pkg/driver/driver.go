// Package driver provides a reference build driver (no teacher analogue
// for the worker-pool shape; grounded in codenerd's use of
// golang.org/x/sync/errgroup for bounded concurrent work). It wires
// pkg/rules targets through pkg/analysis, giving every Environment
// operation and the orphan-artifact check a realistic concurrent caller.
// It does not execute actions (spec Non-goals): Run only drives analysis
// to completion for each target.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/musiphil/gobazel/pkg/analysis"
	"github.com/musiphil/gobazel/pkg/artifact"
	"github.com/musiphil/gobazel/pkg/rules"
)

// Result is one target's analysis outcome.
type Result struct {
	Target rules.Target
	Output *artifact.Artifact
	Err    error
}

// Driver owns the shared Artifact Factory and workspace-status provider
// used across every target's Environment in one build.
type Driver struct {
	Factory         *artifact.Factory
	WorkspaceStatus analysis.WorkspaceStatusProvider // may be nil
	EmbeddedTools   map[string]*artifact.Artifact
}

// New returns a Driver with a fresh, shared Factory.
func New() *Driver {
	return &Driver{Factory: artifact.NewFactory()}
}

// Run analyzes every target in manifest concurrently, bounded by
// runtime.GOMAXPROCS(0). Each goroutine constructs, mutates, and seals
// exactly one Environment for exactly one target — never sharing an
// Environment across goroutines — per the Analysis Environment's
// single-owner lifetime contract. One target's failure never cancels its
// siblings: analyzeOne always returns a nil error to the errgroup itself,
// recording any failure on that target's Result instead.
func (d *Driver) Run(ctx context.Context, manifest *rules.Manifest) ([]Result, error) {
	results := make([]Result, len(manifest.Targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, target := range manifest.Targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = d.analyzeOne(ctx, target)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("build driver: %w", err)
	}
	return results, nil
}

// analyzeOne runs one target's full create -> mutate -> seal lifecycle in
// isolation, never returning an error from the errgroup task itself:
// failures are recorded on the Result so one target's contract violation
// does not cancel its siblings' independent analyses.
func (d *Driver) analyzeOne(_ context.Context, target rules.Target) Result {
	env := analysis.New(analysis.Config{
		Factory:              d.Factory,
		Owner:                artifact.Owner{Label: target.Label},
		EmbeddedTools:        d.EmbeddedTools,
		WorkspaceStatus:      d.WorkspaceStatus,
		AllowRegisterActions: true,
		ExtendedSanityChecks: true,
	})

	out, err := target.Analyze(env)
	if err != nil {
		return Result{Target: target, Err: err}
	}
	if err := env.Seal(target.Label); err != nil {
		return Result{Target: target, Err: err}
	}
	return Result{Target: target, Output: out}
}
