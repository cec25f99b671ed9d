package analysis

import "fmt"

// ContractViolation marks a misuse of the Environment API: a mutation or
// artifact-producing call after seal, a local-generating-action query with
// registration disabled, or an orphan artifact discovered at seal time.
// These are programming-contract violations, not user errors. The
// reference driver (see pkg/driver) records one as that target's failed
// Result without stopping the other targets.
type ContractViolation struct {
	Message string
}

func (e *ContractViolation) Error() string { return e.Message }

func violationf(format string, args ...any) *ContractViolation {
	return &ContractViolation{Message: fmt.Sprintf(format, args...)}
}

// MissingDependency signals that a Skyframe lookup returned "not yet
// computed". It is a restart signal rather than a failure: no Environment
// state is mutated by the call that returns it, so the call can be
// repeated. The reference driver in pkg/driver does not retry; it records
// this error on the target's Result like any other.
type MissingDependency struct {
	Key string
}

func (e *MissingDependency) Error() string {
	return "missing dependency: " + e.Key + " has not been computed yet"
}
