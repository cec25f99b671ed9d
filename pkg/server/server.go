// Package server is a reference stand-in for the long-lived build server
// the Option Processor's assembled argv is meant to be handed to (spec
// Non-goals: action execution, rule evaluation). Dispatch does not execute
// a build; it exists only so cmd/gobazel has something concrete to call
// once option processing completes.
package server

import (
	"context"
	"fmt"

	"github.com/musiphil/gobazel/pkg/driver"
	"github.com/musiphil/gobazel/pkg/rules"
)

// Request is everything a real server would need to start a build: the
// command the client asked for, its arguments, and the assembled argv
// that would normally cross the client/server boundary.
type Request struct {
	Command          string
	CommandArguments []string
	Argv             []string
}

// Dispatch "runs" req against manifest using d, the way a real server's
// command dispatch table would route build/test/run/query to the
// analysis+execution pipeline. Only "build" and "test" actually invoke the
// driver; "run" and "query" are acknowledged but not implemented, since
// target execution and query evaluation are both out of scope here.
func Dispatch(d *driver.Driver, manifest *rules.Manifest, req Request) ([]driver.Result, error) {
	switch req.Command {
	case "build", "test":
		return d.Run(context.Background(), manifest)
	case "run", "query":
		return nil, fmt.Errorf("gobazel %s: not implemented (execution and query evaluation are out of scope)", req.Command)
	default:
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
}
