package optionprocessor

import (
	"path/filepath"
	"strings"
)

// preScan extracts the two directives the Option Processor must recognize
// before any rc-file is even located: --blazerc (unary, overrides the user
// rc) and --nomaster_blazerc (nullary, suppresses the depot rc). It is
// deliberately independent of the startup-option walk in §4.3, since rc
// discovery must finish before that walk can run.
type preScanResult struct {
	blazercOverride  string
	haveOverride     bool
	suppressMasterRc bool
}

func preScan(argv []string) (preScanResult, error) {
	var r preScanResult
	for i := 1; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--nomaster_blazerc":
			r.suppressMasterRc = true
		case arg == "--blazerc":
			if i+1 >= len(argv) {
				return r, badArgvf("--blazerc requires a value")
			}
			r.blazercOverride = argv[i+1]
			r.haveOverride = true
			i++
		case strings.HasPrefix(arg, "--blazerc="):
			r.blazercOverride = strings.TrimPrefix(arg, "--blazerc=")
			r.haveOverride = true
		}
	}
	return r, nil
}

// findDepotRc locates the depot-wide rc-file, probing the two well-known
// paths in order and returning the first readable one, or "" if neither
// exists.
func findDepotRc(fs FileSystem, workspace string) string {
	candidates := []string{
		filepath.Join(workspace, "tools", "blaze.blazerc"),
		filepath.Join(workspace, "..", "READONLY", "google3", "tools", "blaze.blazerc"),
	}
	for _, c := range candidates {
		if fs.Exists(c) {
			return c
		}
	}
	return ""
}

// findUserRc locates the user rc-file. If scan.haveOverride is set, the
// override path must be readable or discovery fails fatally with
// ExitBadArgv; otherwise it falls back to <workspace>/.blazerc then
// $HOME/.blazerc.
func findUserRc(fs FileSystem, workspace, home string, scan preScanResult) (string, error) {
	if scan.haveOverride {
		if !fs.Exists(scan.blazercOverride) {
			return "", badArgvf("--blazerc path %q does not exist or is not readable", scan.blazercOverride)
		}
		return scan.blazercOverride, nil
	}
	if c := filepath.Join(workspace, ".blazerc"); fs.Exists(c) {
		return c, nil
	}
	if home != "" {
		if c := filepath.Join(home, ".blazerc"); fs.Exists(c) {
			return c, nil
		}
	}
	return "", nil
}
