package tui

import "unicode"

// splitShellWords splits a command line such as `code --wait` into argv. Single and
// double quotes group words; a backslash escapes the next rune outside single quotes.
// An unterminated quote runs to the end of the string.
func splitShellWords(s string) []string {
	var (
		out     []string
		cur     []rune
		started bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur, escaped = append(cur, r), false
		case r == '\\' && quote != '\'':
			escaped, started = true, true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote, started = r, true
		case quote == 0 && unicode.IsSpace(r):
			if started {
				out = append(out, string(cur))
			}
			cur, started = cur[:0], false
		default:
			cur, started = append(cur, r), true
		}
	}
	if started {
		out = append(out, string(cur))
	}
	return out
}
