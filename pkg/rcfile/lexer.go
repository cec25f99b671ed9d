package rcfile

import "strings"

// splitLogicalLines joins backslash-newline continuations before splitting
// on newlines, then strips surrounding whitespace and drops empty lines.
// Both \n and \r\n terminators are accepted.
func splitLogicalLines(contents string) []string {
	contents = strings.ReplaceAll(contents, "\r\n", "\n")

	// Merge "...\\\n..." into "......" by removing the backslash and the
	// newline it precedes, for every occurrence.
	var joined strings.Builder
	joined.Grow(len(contents))
	for i := 0; i < len(contents); i++ {
		if contents[i] == '\\' && i+1 < len(contents) && contents[i+1] == '\n' {
			i++ // skip the backslash and the newline both
			continue
		}
		joined.WriteByte(contents[i])
	}

	var lines []string
	for _, raw := range strings.Split(joined.String(), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// tokenize splits one logical line into whitespace-delimited tokens,
// honoring '#' comments, single/double quote grouping, and backslash
// escapes of the next character.
//
// Per spec §9's open question, dangling trailing backslashes and
// unterminated quotes are accepted silently rather than rejected: this
// preserves the original tool's lenient (if arguably buggy) behavior
// rather than guessing at a stricter replacement.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	hasCur := false
	var quote byte // 0, '\'', or '"'
	escaped := false

	flush := func() {
		if hasCur {
			tokens = append(tokens, cur.String())
			cur.Reset()
			hasCur = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]

		if escaped {
			cur.WriteByte(c)
			hasCur = true
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if quote != 0 {
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
				hasCur = true
			}
			continue
		}
		switch c {
		case '#':
			i = len(line) // terminate the line here
		case '\'', '"':
			quote = c
			hasCur = true
		case ' ', '\t':
			flush()
		default:
			cur.WriteByte(c)
			hasCur = true
		}
	}
	flush()
	return tokens
}
