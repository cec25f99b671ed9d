// Package origin records where a handed-out artifact came from, for
// diagnostics only. Capturing a real stack trace is expensive, so it is
// gated behind the Analysis Environment's extended-sanity-checks flag; the
// sentinel variant is used otherwise.
package origin

import (
	"fmt"
	"runtime"
	"strings"
)

// sentinelText is printed in place of a captured stack when extended
// sanity checks are disabled.
const sentinelText = "<no location recorded; enable extended sanity checks for a stack trace>"

// Origin is the provenance of one handed-out artifact. It is either a
// captured call-site stack (Captured) or a fixed placeholder (Sentinel).
type Origin interface {
	String() string
	isOrigin()
}

// Captured holds a formatted stack trace taken at the artifact-creation
// call site.
type Captured struct {
	Stack string
}

func (c Captured) String() string { return c.Stack }
func (Captured) isOrigin()        {}

// Sentinel is used when stack capture is disabled.
type Sentinel struct{}

func (Sentinel) String() string { return sentinelText }
func (Sentinel) isOrigin()      {}

// skipFrames is the number of frames to skip past runtime.Callers, Capture
// itself, and the two pkg/analysis frames above it (recordOrigin and the
// Get*Artifact method), so the trace starts at the rule code that asked for
// an artifact.
const skipFrames = 4

// Capture records the current call stack, formatted one frame per line as
// "at package.Function(file:line)".
func Capture() Captured {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skipFrames, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "at %s(%s:%d)\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return Captured{Stack: strings.TrimRight(b.String(), "\n")}
}
