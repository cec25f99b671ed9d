package rcfile

import "strings"

// ImportCycleError reports a cyclic import chain among rc-files. Stack
// lists every file on the cycle, in the order they were entered, ending
// with the file whose import would have closed the loop.
type ImportCycleError struct {
	Stack []string
}

func (e *ImportCycleError) Error() string {
	return "Import loop detected: " + strings.Join(e.Stack, " -> ")
}

// BadArgvError reports a malformed directive (currently, only "import"
// with the wrong number of arguments). Callers map this to exit code
// BAD_ARGV.
type BadArgvError struct {
	Message string
}

func (e *BadArgvError) Error() string { return e.Message }

// InternalIOError reports an I/O failure reading an rc-file that a prior
// readability probe had found readable. Callers map this to exit code
// INTERNAL_ERROR.
type InternalIOError struct {
	Path string
	Err  error
}

func (e *InternalIOError) Error() string {
	return "failed to read rc-file " + e.Path + ": " + e.Err.Error()
}

func (e *InternalIOError) Unwrap() error { return e.Err }
