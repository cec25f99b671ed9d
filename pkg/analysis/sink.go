package analysis

// ErrorSink is where rule logic reports errors during analysis. Reporting
// an error does not abort analysis; in a non-system environment it
// suppresses the orphan-artifact check at seal time (spec I2, §7 RuleError
// row). A system environment's HasErrors is always false, so its reports
// never suppress that check.
type ErrorSink interface {
	// Report records an error raised by rule logic under analysis.
	Report(err error)
	// HasErrors reports whether any error has been reported so far.
	HasErrors() bool
}

// GlobalReporter is the process-wide sink used by the system environment
// (the analysis env that underwrites the build tool's own bookkeeping
// rather than a user's configured target). It forwards every report to an
// injectable log function so the reference driver can route it to
// wherever process-global diagnostics go.
type GlobalReporter struct {
	Log func(err error)

	hasErrors bool
}

func (g *GlobalReporter) Report(err error) {
	g.hasErrors = true
	if g.Log != nil {
		g.Log(err)
	}
}

func (g *GlobalReporter) HasErrors() bool { return g.hasErrors }

// BufferedSink accumulates errors for a single configured target's
// analysis, for later inspection by the driver once the Environment seals.
type BufferedSink struct {
	errs []error
}

func (b *BufferedSink) Report(err error) { b.errs = append(b.errs, err) }

func (b *BufferedSink) HasErrors() bool { return len(b.errs) > 0 }

// Errors returns every error reported so far, in report order.
func (b *BufferedSink) Errors() []error {
	out := make([]error, len(b.errs))
	copy(out, b.errs)
	return out
}
