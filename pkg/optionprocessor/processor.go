// Package optionprocessor implements the boot-time rc-file and
// command-line layering pipeline (C6): it discovers the depot and user
// rc-files, parses them (following imports, via pkg/rcfile), folds startup
// options into a pkg/startup.Options, and assembles the argument vector
// forwarded to the long-lived server process.
package optionprocessor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/musiphil/gobazel/pkg/rcfile"
	"github.com/musiphil/gobazel/pkg/startup"
)

// BootEnvironment bundles everything ParseOptions needs about the process
// being booted, standing in for the raw os.Args/os.Environ/os.Getwd calls
// a real main() would make — passed explicitly so tests can drive the
// exact scenarios in spec §8 without touching the real filesystem or
// environment.
type BootEnvironment struct {
	// Argv is the full command line, including the program name at
	// index 0, matching os.Args.
	Argv []string
	// Workspace is the detected workspace root.
	Workspace string
	// Home is $HOME, or "" if unset.
	Home string
	// Cwd is the process's current working directory.
	Cwd string
	// ClientEnv is the full process environment, forwarded to the server
	// unless batch mode is requested.
	ClientEnv map[string]string
	// IsATTY reports whether the controlling terminal is a tty.
	IsATTY bool
	// TerminalColumns is the terminal width, or 0 if unknown.
	TerminalColumns int
}

// ParsedOptions is everything ParseOptions produces: the resolved startup
// settings, the command the user asked for and its arguments, and the full
// argument vector to hand to the server.
type ParsedOptions struct {
	StartupOptions   *startup.Options
	Command          string
	CommandArguments []string
	ServerArgv       []string
	RcFiles          []rcfile.RcFile
	RcOptions        *rcfile.RcOptionMap
}

// Processor runs the discovery/layering/assembly pipeline. The zero value
// is not usable; construct with New.
type Processor struct {
	fs  FileSystem
	log func(string)

	// extension, if set, is installed on every startup.Options this
	// Processor builds, giving a caller-supplied flag (e.g. a cluster
	// namespace selector) first refusal alongside the built-in ones.
	extension startup.Extension
}

// New returns a Processor backed by fs. log, if non-nil, receives one
// informational line per rc-file with "startup" options (spec §4.2) and one
// warning line if a trailing rc startup option is silently dropped
// (spec §9 open question #2); pass nil to discard them.
func New(fs FileSystem, log func(string)) *Processor {
	if fs == nil {
		fs = OSFileSystem{}
	}
	return &Processor{fs: fs, log: log}
}

// SetStartupExtension installs ext on every startup.Options this Processor
// subsequently builds, the same ProcessArgExtra hook point spec §4.4 models.
// Passing nil reverts to the no-op extension startup.New installs.
func (p *Processor) SetStartupExtension(ext startup.Extension) {
	p.extension = ext
}

func (p *Processor) logf(format string, args ...any) {
	if p.log != nil {
		p.log(fmt.Sprintf(format, args...))
	}
}

// ParseOptions runs the full pipeline described in spec §4.3.
func (p *Processor) ParseOptions(be BootEnvironment) (*ParsedOptions, error) {
	scan, err := preScan(be.Argv)
	if err != nil {
		return nil, err
	}

	files := &rcfile.RcFiles{}
	options := rcfile.NewRcOptionMap()

	if !scan.suppressMasterRc {
		if depot := findDepotRc(p.fs, be.Workspace); depot != "" {
			if err := p.parse(depot, files, options); err != nil {
				return nil, err
			}
		}
	}
	userRc, err := findUserRc(p.fs, be.Workspace, be.Home, scan)
	if err != nil {
		return nil, err
	}
	if userRc != "" {
		if err := p.parse(userRc, files, options); err != nil {
			return nil, err
		}
	}

	opts := startup.New()
	if p.extension != nil {
		opts.Extension = p.extension
	}
	lastStartupArgIndex, err := p.layerStartupOptions(opts, files, options, be.Argv)
	if err != nil {
		return nil, err
	}
	opts.InitDefaults(be.Argv[0], be.Workspace)

	command := ""
	var commandArgs []string
	if lastStartupArgIndex+1 < len(be.Argv) {
		command = be.Argv[lastStartupArgIndex+1]
		commandArgs = append([]string{}, be.Argv[lastStartupArgIndex+2:]...)
	}

	serverArgv := assembleServerArgv(command, commandArgs, files, options, be, opts.Batch)

	return &ParsedOptions{
		StartupOptions:   opts,
		Command:          command,
		CommandArguments: commandArgs,
		ServerArgv:       serverArgv,
		RcFiles:          files.All(),
		RcOptions:        options,
	}, nil
}

// parse runs the rc-file parser and translates its error taxonomy
// (rcfile.ImportCycleError / BadArgvError / InternalIOError) into this
// package's equivalents, which carry the exit codes spec §7 prescribes.
func (p *Processor) parse(filename string, files *rcfile.RcFiles, options *rcfile.RcOptionMap) error {
	err := rcfile.Parse(filename, p.readFile, &rcfile.ImportStack{}, files, options, func(msg string) {
		p.logf("INFO: %s", msg)
	})
	if err == nil {
		return nil
	}

	var cycle *rcfile.ImportCycleError
	if errors.As(err, &cycle) {
		return &UserConfigError{Code: ExitBadArgv, Message: cycle.Error()}
	}
	var badArgv *rcfile.BadArgvError
	if errors.As(err, &badArgv) {
		return &UserConfigError{Code: ExitBadArgv, Message: badArgv.Error()}
	}
	var ioErr *rcfile.InternalIOError
	if errors.As(err, &ioErr) {
		return &InternalIOError{Path: ioErr.Path, Err: ioErr.Err}
	}
	return err
}

func (p *Processor) readFile(path string) (string, error) {
	if !p.fs.Exists(path) {
		return "", fmt.Errorf("%s: not found", path)
	}
	return p.fs.ReadFile(path)
}

// layerStartupOptions walks the rc "startup" entries in discovery order,
// then argv starting at index 1, feeding consecutive pairs to
// opts.ProcessArg. It returns the argv index of the last startup flag
// consumed (0 if none), so the caller can locate the command.
func (p *Processor) layerStartupOptions(opts *startup.Options, files *rcfile.RcFiles, options *rcfile.RcOptionMap, argv []string) (int, error) {
	fileByIndex := make(map[uint32]string)
	for _, f := range files.All() {
		fileByIndex[f.Index] = f.Filename
	}

	rcOpts := options.Get("startup")
	for i := 0; i < len(rcOpts); {
		arg := rcOpts[i].Option
		source := fileByIndex[rcOpts[i].RcFileIndex]

		if width, ok := preScannedFlagWidth(arg, i+1 < len(rcOpts)); ok {
			i += width
			continue
		}

		if i+1 >= len(rcOpts) && !startup.IsArg(arg) {
			// Open question #2 (spec §9): the last rc startup token, when it
			// doesn't look like a flag, is silently dropped by the original
			// tool. Preserved, but with a warning where the original had none.
			p.logf("warning: dropping trailing startup option %q from %s: does not look like a flag", arg, source)
			break
		}

		var next *string
		if i+1 < len(rcOpts) {
			v := rcOpts[i+1].Option
			next = &v
		} else {
			empty := ""
			next = &empty
		}

		consumed, err := opts.ProcessArg(arg, next, source)
		if err != nil {
			return 0, badArgvf("%s: %v", source, err)
		}
		if consumed {
			i += 2
		} else {
			i++
		}
	}

	lastStartupArgIndex := 0
	for i := 1; i < len(argv); {
		arg := argv[i]
		if !startup.IsArg(arg) {
			break
		}

		if width, ok := preScannedFlagWidth(arg, i+1 < len(argv)); ok {
			i += width
			lastStartupArgIndex = i - 1
			continue
		}

		var next *string
		if i+1 < len(argv) {
			v := argv[i+1]
			next = &v
		} else {
			empty := ""
			next = &empty
		}

		consumed, err := opts.ProcessArg(arg, next, "")
		if err != nil {
			return 0, badArgvf("%v", err)
		}
		if consumed {
			i += 2
		} else {
			i++
		}
		lastStartupArgIndex = i - 1
	}
	return lastStartupArgIndex, nil
}

// preScannedFlagWidth reports whether arg is one of the discovery-phase
// flags (--blazerc, --nomaster_blazerc) that preScan already acted on.
// Such flags must be skipped here rather than handed to
// startup.Options.ProcessArg, which has no notion of them and would
// otherwise reject them as unrecognized. width is the number of tokens
// (1 or 2) arg occupies, given whether a following token exists.
func preScannedFlagWidth(arg string, hasNext bool) (width int, ok bool) {
	switch {
	case arg == "--nomaster_blazerc":
		return 1, true
	case strings.HasPrefix(arg, "--blazerc="):
		return 1, true
	case arg == "--blazerc":
		if hasNext {
			return 2, true
		}
		return 1, true
	}
	return 0, false
}

// assembleServerArgv builds the server-bound argument vector per spec §6:
// command, rc_source lines, default_override lines, terminal info, client
// environment, client cwd, optional --emacs, then the user's command
// arguments.
func assembleServerArgv(command string, commandArgs []string, files *rcfile.RcFiles, options *rcfile.RcOptionMap, be BootEnvironment, batch bool) []string {
	var argv []string
	if command != "" {
		argv = append(argv, command)
	}

	for _, f := range files.All() {
		argv = append(argv, "--rc_source="+f.Filename)
	}

	for _, cmd := range options.Commands() {
		if cmd == "startup" {
			continue
		}
		for _, opt := range options.Get(cmd) {
			argv = append(argv, fmt.Sprintf("--default_override=%d:%s=%s", opt.RcFileIndex, cmd, opt.Option))
		}
	}

	if be.IsATTY {
		argv = append(argv, "--isatty=1")
	} else {
		argv = append(argv, "--isatty=0")
	}
	argv = append(argv, fmt.Sprintf("--terminal_columns=%d", be.TerminalColumns))

	if batch {
		argv = append(argv, "--ignore_client_env")
	} else {
		keys := make([]string, 0, len(be.ClientEnv))
		for k := range be.ClientEnv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			argv = append(argv, fmt.Sprintf("--client_env=%s=%s", k, be.ClientEnv[k]))
		}
	}

	argv = append(argv, "--client_cwd="+be.Cwd)

	if strings.TrimSpace(be.ClientEnv["EMACS"]) == "t" {
		argv = append(argv, "--emacs")
	}

	argv = append(argv, commandArgs...)
	return argv
}
