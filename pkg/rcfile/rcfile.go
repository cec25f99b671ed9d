// Package rcfile implements the rc-file parser (C5): tokenizing one
// .blazerc-shaped file, following import directives with cycle detection,
// and folding the result into a shared RcOptionMap.
package rcfile

import "fmt"

// RcOption is one token of one command's options, tagged with the index of
// the rc-file it came from.
type RcOption struct {
	RcFileIndex uint32
	Option      string
}

// RcFile records the absolute path of a discovered rc-file and the order in
// which it was discovered.
type RcFile struct {
	Filename string
	Index    uint32
}

// RcFiles is the ordered list of every rc-file discovered so far, across a
// single option-processor run, including files pulled in via import.
type RcFiles struct {
	files []RcFile
}

// Add appends a new RcFile with index equal to the list's current size,
// returning the assigned index.
func (fs *RcFiles) Add(filename string) uint32 {
	idx := uint32(len(fs.files))
	fs.files = append(fs.files, RcFile{Filename: filename, Index: idx})
	return idx
}

// All returns every discovered rc-file, in discovery order.
func (fs *RcFiles) All() []RcFile {
	out := make([]RcFile, len(fs.files))
	copy(out, fs.files)
	return out
}

// RcOptionMap maps command name ("startup", "build", "test", ...) to the
// ordered sequence of options accumulated for it, in the concatenation of
// textual order across parsed files in discovery order, with imports
// inlined at the point of the directive.
type RcOptionMap struct {
	byCommand map[string][]RcOption
	order     []string // first-seen command order, for stable iteration
}

// NewRcOptionMap returns an empty map.
func NewRcOptionMap() *RcOptionMap {
	return &RcOptionMap{byCommand: make(map[string][]RcOption)}
}

func (m *RcOptionMap) append(command string, opt RcOption) {
	if _, ok := m.byCommand[command]; !ok {
		m.order = append(m.order, command)
	}
	m.byCommand[command] = append(m.byCommand[command], opt)
}

// Get returns the options recorded for command, in order, or nil.
func (m *RcOptionMap) Get(command string) []RcOption {
	return m.byCommand[command]
}

// Commands returns every command name seen, in first-seen order.
func (m *RcOptionMap) Commands() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ImportStack tracks the chain of files currently being imported, to detect
// cycles. The zero value is an empty stack.
type ImportStack struct {
	paths []string
}

func (s *ImportStack) push(path string) { s.paths = append(s.paths, path) }
func (s *ImportStack) pop()             { s.paths = s.paths[:len(s.paths)-1] }

func (s *ImportStack) contains(path string) bool {
	for _, p := range s.paths {
		if p == path {
			return true
		}
	}
	return false
}

// String renders the stack for an "Import loop detected" message.
func (s *ImportStack) String() string {
	out := ""
	for i, p := range s.paths {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}

// ReadFile abstracts reading an rc-file's contents, so tests can supply
// in-memory files without touching disk.
type ReadFile func(path string) (string, error)

// StartupLineLogger receives one formatted informational message per
// parsed file that has "startup" options, listing all of that file's
// startup tokens once the file is done (spec §4.2's "INFO: Reading..."
// message).
type StartupLineLogger func(message string)

// Parse reads filename, tokenizes it, and folds the result into files and
// options, recursively following import directives. stack tracks the
// in-progress import chain for cycle detection; pass a fresh *ImportStack
// for a top-level parse.
//
// On success, a new RcFile has already been appended to files for filename
// (and for every transitively imported file), each with its assigned
// index.
func Parse(filename string, read ReadFile, stack *ImportStack, files *RcFiles, options *RcOptionMap, logStartup StartupLineLogger) error {
	if stack.contains(filename) {
		return &ImportCycleError{Stack: append(append([]string{}, stack.paths...), filename)}
	}

	contents, err := read(filename)
	if err != nil {
		return &InternalIOError{Path: filename, Err: err}
	}

	index := files.Add(filename)
	stack.push(filename)
	defer stack.pop()

	var startupTokens []string
	lines := splitLogicalLines(contents)
	for _, line := range lines {
		tokens := tokenize(line)
		if len(tokens) == 0 {
			continue
		}
		command := tokens[0]
		rest := tokens[1:]

		if command == "import" {
			if len(rest) != 1 {
				return &BadArgvError{Message: fmt.Sprintf("'import' directive in %s requires exactly one argument, got %d", filename, len(rest))}
			}
			if err := Parse(rest[0], read, stack, files, options, logStartup); err != nil {
				return err
			}
			continue
		}

		for _, tok := range rest {
			options.append(command, RcOption{RcFileIndex: index, Option: tok})
			if command == "startup" {
				startupTokens = append(startupTokens, tok)
			}
		}
	}
	if logStartup != nil && len(startupTokens) > 0 {
		logStartup(fmt.Sprintf("Reading 'startup' options from %s: %s", filename, joinSpace(startupTokens)))
	}
	return nil
}

func joinSpace(toks []string) string {
	out := ""
	for i, t := range toks {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
