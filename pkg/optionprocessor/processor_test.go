package optionprocessor

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"k8s.io/apimachinery/pkg/util/diff"
)

type memFS struct {
	files map[string]string
}

func newMemFS(files map[string]string) *memFS { return &memFS{files: files} }

func (m *memFS) Exists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *memFS) ReadFile(path string) (string, error) {
	content, ok := m.files[path]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func baseBootEnv(argv []string) BootEnvironment {
	return BootEnvironment{
		Argv:            argv,
		Workspace:       "/home/user/ws",
		Home:            "/home/user",
		Cwd:             "/home/user/ws",
		ClientEnv:       map[string]string{"PATH": "/usr/bin", "LANG": "en_US.UTF-8"},
		IsATTY:          true,
		TerminalColumns: 80,
	}
}

func TestParseOptionsReadsDepotAndUserRc(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/tools/blaze.blazerc": "build --show_timestamps\n",
		"/home/user/ws/.blazerc":            "startup --max_idle_secs=120\n",
	})
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "build", "//pkg:target"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if len(got.RcFiles) != 2 {
		t.Fatalf("RcFiles = %v, want depot+user rc", got.RcFiles)
	}
	if got.RcFiles[0].Filename != "/home/user/ws/tools/blaze.blazerc" {
		t.Fatalf("expected depot rc discovered first, got %q", got.RcFiles[0].Filename)
	}
	if got.Command != "build" {
		t.Fatalf("Command = %q, want build", got.Command)
	}
	if got.StartupOptions.MaxIdleSecs.Seconds() != 120 {
		t.Fatalf("MaxIdleSecs = %v, want 120s from rc", got.StartupOptions.MaxIdleSecs)
	}
}

// S3 — an import cycle between rc-files fails with ExitBadArgv.
func TestParseOptionsImportCycle(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/.blazerc":      "import /home/user/ws/other.blazerc\n",
		"/home/user/ws/other.blazerc": "import /home/user/ws/.blazerc\n",
	})
	p := New(fs, nil)

	_, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "build"}))
	if err == nil {
		t.Fatalf("expected an import-cycle error")
	}
	var uce *UserConfigError
	if !errors.As(err, &uce) {
		t.Fatalf("expected *UserConfigError, got %T: %v", err, err)
	}
	if uce.Code != ExitBadArgv {
		t.Fatalf("Code = %v, want ExitBadArgv", uce.Code)
	}
	if !strings.Contains(uce.Message, "Import loop detected") {
		t.Fatalf("message = %q, missing import-loop wording", uce.Message)
	}
}

// S4 / P7 — a command-line startup flag overrides the same flag set in an
// rc-file, and is attributed to the command line.
func TestParseOptionsCommandLineOverridesRcStartup(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/.blazerc": "startup --max_idle_secs=10\n",
	})
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "--max_idle_secs=999", "build"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if got.StartupOptions.MaxIdleSecs.Seconds() != 999 {
		t.Fatalf("MaxIdleSecs = %v, want 999s from command line", got.StartupOptions.MaxIdleSecs)
	}
	src := got.StartupOptions.OptionSources()["max_idle_secs"]
	if src.FromDefault || src.RcFile != "" {
		t.Fatalf("expected command-line attribution, got %#v", src)
	}
	if got.Command != "build" {
		t.Fatalf("Command = %q, want build", got.Command)
	}
}

// S5 — the server argv follows the fixed schema: command, --rc_source
// lines in discovery order, --default_override lines, terminal info,
// client env, client cwd, then the command's own arguments.
func TestParseOptionsServerArgvSchema(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/tools/blaze.blazerc": "build --show_timestamps\n",
	})
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "build", "//pkg:target", "--verbose"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}

	argv := got.ServerArgv
	if len(argv) == 0 || argv[0] != "build" {
		t.Fatalf("argv[0] = %v, want build", argv)
	}
	idxRcSource := indexOfPrefix(argv, "--rc_source=")
	idxOverride := indexOfPrefix(argv, "--default_override=")
	idxIsATTY := indexOfPrefix(argv, "--isatty=")
	idxCwd := indexOfPrefix(argv, "--client_cwd=")

	if idxRcSource == -1 || idxOverride == -1 || idxIsATTY == -1 || idxCwd == -1 {
		t.Fatalf("missing expected argv fields: %v", argv)
	}
	if !(idxRcSource < idxOverride && idxOverride < idxIsATTY && idxIsATTY < idxCwd) {
		t.Fatalf("argv fields out of schema order: %v", argv)
	}
	if argv[len(argv)-2] != "//pkg:target" || argv[len(argv)-1] != "--verbose" {
		t.Fatalf("command arguments not appended last: %v", argv)
	}
}

// P8 — --default_override entries carry the originating rc-file's index.
func TestParseOptionsDefaultOverrideCarriesRcFileIndex(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/tools/blaze.blazerc": "build --show_timestamps\n",
		"/home/user/ws/.blazerc":            "build --nostamp\n",
	})
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "build"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if !containsString(got.ServerArgv, "--default_override=0:build=--show_timestamps") {
		t.Fatalf("missing depot-rc override with index 0: %v", got.ServerArgv)
	}
	if !containsString(got.ServerArgv, "--default_override=1:build=--nostamp") {
		t.Fatalf("missing user-rc override with index 1: %v", got.ServerArgv)
	}
}

// Batch mode suppresses the per-key --client_env splicing in favor of a
// single --ignore_client_env flag (spec §4.3 step 4 / §6).
func TestParseOptionsBatchSuppressesClientEnv(t *testing.T) {
	fs := newMemFS(nil)
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "--batch", "build"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if !got.StartupOptions.Batch {
		t.Fatalf("expected Batch = true")
	}
	if !containsString(got.ServerArgv, "--ignore_client_env") {
		t.Fatalf("expected --ignore_client_env in argv: %v", got.ServerArgv)
	}
	if indexOfPrefix(got.ServerArgv, "--client_env=") != -1 {
		t.Fatalf("did not expect --client_env entries in batch mode: %v", got.ServerArgv)
	}
}

func TestParseOptionsNonBatchEmitsSortedClientEnv(t *testing.T) {
	fs := newMemFS(nil)
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "build"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	first := indexOfPrefix(got.ServerArgv, "--client_env=LANG=")
	second := indexOfPrefix(got.ServerArgv, "--client_env=PATH=")
	if first == -1 || second == -1 {
		t.Fatalf("missing --client_env entries: %v", got.ServerArgv)
	}
	if first > second {
		t.Fatalf("expected sorted --client_env keys, got %v", got.ServerArgv)
	}
}

func TestParseOptionsNoMasterBlazercSuppressesDepotRc(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/tools/blaze.blazerc": "build --show_timestamps\n",
	})
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "--nomaster_blazerc", "build"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if len(got.RcFiles) != 0 {
		t.Fatalf("expected no rc-files discovered, got %v", got.RcFiles)
	}
}

func TestParseOptionsBlazercOverride(t *testing.T) {
	fs := newMemFS(map[string]string{
		"/home/user/ws/.blazerc":    "build --nostamp\n",
		"/custom/path/.blazerc_alt": "build --stamp\n",
	})
	p := New(fs, nil)

	got, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "--blazerc=/custom/path/.blazerc_alt", "build"}))
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if len(got.RcFiles) != 1 || got.RcFiles[0].Filename != "/custom/path/.blazerc_alt" {
		t.Fatalf("expected override rc-file only, got %v", got.RcFiles)
	}
}

func TestParseOptionsUnreadableBlazercOverrideErrors(t *testing.T) {
	fs := newMemFS(nil)
	p := New(fs, nil)

	_, err := p.ParseOptions(baseBootEnv([]string{"gobazel", "--blazerc=/does/not/exist", "build"}))
	if err == nil {
		t.Fatalf("expected error for unreadable --blazerc override")
	}
	var uce *UserConfigError
	if !errors.As(err, &uce) || uce.Code != ExitBadArgv {
		t.Fatalf("expected *UserConfigError with ExitBadArgv, got %T: %v", err, err)
	}
}

// S5 — with no rc files and no client environment, the assembled argv's
// exact shape (not just the presence of a few fields) must match spec §6's
// schema. Rendered with apimachinery's reflect-diff on failure, the way the
// openshift-ci-tools test suite reports expected/actual mismatches.
func TestParseOptionsServerArgvExactPrefix(t *testing.T) {
	fs := newMemFS(nil)
	p := New(fs, nil)

	be := BootEnvironment{
		Argv:            []string{"gobazel", "--batch", "build", "//pkg:target"},
		Workspace:       "/home/user/ws",
		Home:            "/home/user",
		Cwd:             "/home/user/ws",
		ClientEnv:       map[string]string{},
		IsATTY:          false,
		TerminalColumns: 0,
	}

	got, err := p.ParseOptions(be)
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}

	want := []string{
		"build",
		"--isatty=0",
		"--terminal_columns=0",
		"--ignore_client_env",
		"--client_cwd=/home/user/ws",
		"//pkg:target",
	}

	if !reflect.DeepEqual(want, got.ServerArgv) {
		t.Errorf("ServerArgv does not match expected:\n%s", diff.ObjectReflectDiff(want, got.ServerArgv))
	}
}

func indexOfPrefix(argv []string, prefix string) int {
	for i, a := range argv {
		if strings.HasPrefix(a, prefix) {
			return i
		}
	}
	return -1
}

func containsString(argv []string, s string) bool {
	for _, a := range argv {
		if a == s {
			return true
		}
	}
	return false
}
