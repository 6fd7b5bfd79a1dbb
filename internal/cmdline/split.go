// Package cmdline tokenizes raw command strings into argument vectors.
//
// The grammar is deliberately small: spaces and newlines separate
// arguments, double quotes group separators into one argument, and a
// doubled quote inside a quoted region is a literal quote. There is no
// shell evaluation of any kind: no pipes, redirection, globbing, or
// variable expansion.
package cmdline

import "strings"

// Split breaks a command string into its argument vector.
//
// Scanning runs left to right with a single accumulation buffer:
//   - A space or newline outside a quoted region completes the current
//     argument (empty buffers are skipped, so runs of separators collapse).
//   - Inside a quoted region separators are appended literally.
//   - A double quote opens a quoted region. Inside one, a doubled quote
//     ("") appends a literal quote and stays inside the region; any other
//     closing quote completes the current argument, even an empty one, so
//     `a "" b` yields three arguments.
//   - Any other character is appended as-is. Backslashes have no special
//     meaning.
//
// An unterminated quote is not an error; the pending buffer is flushed at
// end of input. Split never returns an error: an empty or all-separator
// input simply yields an empty vector, which callers must reject before
// spawning anything.
func Split(command string) []string {
	var args []string
	buf := make([]byte, 0, len(command))
	inQuote := false

	flush := func() {
		args = append(args, string(buf))
		buf = buf[:0]
	}

	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case isSeparator(c) && !inQuote:
			if len(buf) > 0 {
				flush()
			}
		case c == '"':
			if !inQuote {
				inQuote = true
				break
			}
			if i+1 < len(command) && command[i+1] == '"' {
				// Escaped quote: consume both characters, stay quoted.
				buf = append(buf, '"')
				i++
				break
			}
			// Closing quote completes the argument, empty ones included.
			flush()
			inQuote = false
		default:
			buf = append(buf, c)
		}
	}
	if len(buf) > 0 {
		flush()
	}
	return args
}

// Join renders an argument vector back into a command string, quoting
// arguments that contain separators or quotes. Join(Split(s)) is not
// guaranteed to reproduce s byte for byte, but Split(Join(v)) always
// reproduces v.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = quote(arg)
	}
	return strings.Join(quoted, " ")
}

func quote(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \n\"") {
		return arg
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		if arg[i] == '"' {
			b.WriteString(`""`)
			continue
		}
		b.WriteByte(arg[i])
	}
	b.WriteByte('"')
	return b.String()
}

func isSeparator(c byte) bool {
	return c == ' ' || c == '\n'
}
