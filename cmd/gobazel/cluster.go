package main

import (
	"fmt"
	"strings"

	"github.com/musiphil/gobazel/pkg/startup"
)

// clusterNamespaceExtension claims the --cluster_namespace startup flag via
// the Extension hook spec §4.4 models (ProcessArgExtra), the same mechanism
// a real deployment would use to add a flag the core StartupOptions knows
// nothing about. Its value selects which build namespace's pipeline
// ImageStream/build-info ConfigMap backs the Workspace Status Provider
// (C8, pkg/clusterstatus); leaving it unset keeps analysis on the eager
// nil-provider / Skyframe path, unchanged from before this flag existed.
type clusterNamespaceExtension struct {
	Namespace string
}

func (e *clusterNamespaceExtension) ProcessArgExtra(o *startup.Options, arg, next, source string) (handled, consumedNext bool, err error) {
	name, value, hasValue := splitClusterFlag(arg)
	if name != "cluster_namespace" {
		return false, false, nil
	}
	if hasValue {
		e.Namespace = value
		return true, false, nil
	}
	if next == "" {
		return true, false, fmt.Errorf("--cluster_namespace requires a value")
	}
	e.Namespace = next
	return true, true, nil
}

// splitClusterFlag mirrors pkg/startup's own splitFlag: "--name=value" or
// bare "--name" split into a dash-stripped name and an optional inline value.
func splitClusterFlag(arg string) (name, value string, hasValue bool) {
	trimmed := strings.TrimLeft(arg, "-")
	if idx := strings.IndexByte(trimmed, '='); idx >= 0 {
		return trimmed[:idx], trimmed[idx+1:], true
	}
	return trimmed, "", false
}
