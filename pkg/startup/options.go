// Package startup implements the typed StartupOptions container (C7): the
// boot settings layered in from rc-files and the command line, each
// remembering where its value came from.
package startup

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// oneWayNameEncoding mirrors the teacher's short, collision-tolerant
// encoding for deriving filesystem-safe names from a hash: base32 over a
// 32-character alphabet with no padding.
var oneWayNameEncoding = base32.NewEncoding("0123456789abcdefghijklmnopqrstuv").WithPadding(base32.NoPadding)

// Source attributes where an option's current value came from.
type Source struct {
	// FromDefault is true if the value has never been explicitly set.
	FromDefault bool
	// RcFile is the originating rc-file's path, or "" for the command
	// line. Only meaningful when FromDefault is false.
	RcFile string
}

func (s Source) String() string {
	if s.FromDefault {
		return "default"
	}
	if s.RcFile == "" {
		return "command line"
	}
	return s.RcFile
}

// Extension models the original design's ProcessArgExtra subclass hook as a
// strategy object held by value, per spec §4.4. It has no counterpart of
// the AddExtraOptions hook: an Extension cannot add arguments to the
// server argv.
type Extension interface {
	// ProcessArgExtra is given first refusal on an argument Options itself
	// doesn't recognize. handled reports whether it claimed the argument;
	// consumedNext reports whether it also consumed next as a value.
	ProcessArgExtra(o *Options, arg, next, source string) (handled, consumedNext bool, err error)
}

// noExtension claims nothing.
type noExtension struct{}

func (noExtension) ProcessArgExtra(*Options, string, string, string) (bool, bool, error) {
	return false, false, nil
}

// Options is the typed startup-settings container (C7).
type Options struct {
	OutputBase  string
	InstallBase string
	Batch       bool
	MaxIdleSecs time.Duration
	HostJvmArgs []string

	Extension Extension

	sources map[string]Source
}

// New returns an Options with an empty source table and the no-op
// extension installed.
func New() *Options {
	return &Options{Extension: noExtension{}, sources: make(map[string]Source)}
}

// InitDefaults seeds install_base and output_base from a hash of the
// workspace path, and max_idle_secs from a fixed value, leaving any
// explicitly set value alone. argv0 is accepted but not used: no default
// depends on it. Matches the teacher's sha256-then-base32 short-hash
// technique.
func (o *Options) InitDefaults(argv0, workspace string) {
	h := sha256.Sum256([]byte(workspace))
	hash := oneWayNameEncoding.EncodeToString(h[:16])

	o.setDefault("install_base", &o.InstallBase, "/var/cache/gobazel/install/"+hash)
	o.setDefault("output_base", &o.OutputBase, "/var/cache/gobazel/output/"+hash)
	if o.MaxIdleSecs == 0 {
		o.MaxIdleSecs = 3 * time.Hour
		if _, ok := o.sources["max_idle_secs"]; !ok {
			o.sources["max_idle_secs"] = Source{FromDefault: true}
		}
	}
	_ = argv0
}

func (o *Options) setDefault(name string, dst *string, value string) {
	if dst != nil && *dst == "" {
		*dst = value
	}
	if _, ok := o.sources[name]; !ok {
		o.sources[name] = Source{FromDefault: true}
	}
}

func (o *Options) set(name string, source string) {
	o.sources[name] = Source{RcFile: source}
}

// OptionSources returns the source attribution table built up by ProcessArg
// and InitDefaults calls so far. An option that was never explicitly set is
// absent from the map until InitDefaults runs; after that, the options
// InitDefaults fills in (install_base, output_base, max_idle_secs) carry a
// Source with FromDefault set.
func (o *Options) OptionSources() map[string]Source {
	out := make(map[string]Source, len(o.sources))
	for k, v := range o.sources {
		out[k] = v
	}
	return out
}

// IsArg reports whether s looks like a flag: starts with '-' and is not one
// of the help spellings, which are treated as command arguments rather
// than startup flags (spec §6).
func IsArg(s string) bool {
	if !strings.HasPrefix(s, "-") {
		return false
	}
	switch s {
	case "--help", "-help", "-h":
		return false
	}
	return true
}

// ProcessArg applies one startup flag. source is "" for command-line
// origin or an rc-file path. next is the following argv token, or nil if
// arg is the last token available; it returns whether arg consumed next as
// its value (a unary flag written as two argv tokens) — always false when
// next is nil.
func (o *Options) ProcessArg(arg string, next *string, source string) (consumedNext bool, err error) {
	name, value, hasValue := splitFlag(arg)

	switch name {
	case "output_base":
		v, ok, cerr := valueOrNext(name, value, hasValue, next)
		if cerr != nil {
			return false, cerr
		}
		o.OutputBase = v
		o.set("output_base", source)
		return ok, nil
	case "install_base":
		v, ok, cerr := valueOrNext(name, value, hasValue, next)
		if cerr != nil {
			return false, cerr
		}
		o.InstallBase = v
		o.set("install_base", source)
		return ok, nil
	case "batch":
		o.Batch = true
		o.set("batch", source)
		return false, nil
	case "nobatch":
		o.Batch = false
		o.set("batch", source)
		return false, nil
	case "max_idle_secs":
		v, ok, cerr := valueOrNext(name, value, hasValue, next)
		if cerr != nil {
			return false, cerr
		}
		secs, perr := strconv.Atoi(v)
		if perr != nil {
			return false, fmt.Errorf("invalid --max_idle_secs value %q: %w", v, perr)
		}
		o.MaxIdleSecs = time.Duration(secs) * time.Second
		o.set("max_idle_secs", source)
		return ok, nil
	case "host_jvm_args":
		v, ok, cerr := valueOrNext(name, value, hasValue, next)
		if cerr != nil {
			return false, cerr
		}
		o.HostJvmArgs = append(o.HostJvmArgs, v)
		o.set("host_jvm_args", source)
		return ok, nil
	}

	handled, consumed, extErr := o.Extension.ProcessArgExtra(o, arg, derefOrEmpty(next), source)
	if extErr != nil {
		return false, extErr
	}
	if handled {
		return consumed, nil
	}
	return false, fmt.Errorf("unrecognized startup option: %s", arg)
}

// splitFlag parses "--name=value" or "--name" / "-name" into its bare name
// (no leading dashes) and an optional inline value.
func splitFlag(arg string) (name, value string, hasValue bool) {
	trimmed := strings.TrimLeft(arg, "-")
	if idx := strings.IndexByte(trimmed, '='); idx >= 0 {
		return trimmed[:idx], trimmed[idx+1:], true
	}
	return trimmed, "", false
}

// valueOrNext returns the inline value if present, else next (and whether
// next was actually consumed as that value). It errors if neither an
// inline value nor a next token is available.
func valueOrNext(name, value string, hasValue bool, next *string) (string, bool, error) {
	if hasValue {
		return value, false, nil
	}
	if next == nil {
		return "", false, fmt.Errorf("--%s requires a value", name)
	}
	return *next, true, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
