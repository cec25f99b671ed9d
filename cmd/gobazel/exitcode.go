package main

import (
	"errors"

	"github.com/musiphil/gobazel/pkg/analysis"
	"github.com/musiphil/gobazel/pkg/optionprocessor"
)

// exitCodeFor maps an error returned from (*options).Run to the process
// exit code spec §6 prescribes: a UserConfigError carries its own code, a
// ContractViolation is always an internal error, and anything else falls
// back to a generic failure.
func exitCodeFor(err error) int {
	var uce *optionprocessor.UserConfigError
	if errors.As(err, &uce) {
		return int(uce.Code)
	}
	var ioErr *optionprocessor.InternalIOError
	if errors.As(err, &ioErr) {
		return int(optionprocessor.ExitInternalError)
	}
	var violation *analysis.ContractViolation
	if errors.As(err, &violation) {
		return int(optionprocessor.ExitInternalError)
	}
	return 1
}
