package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	importLine = regexp.MustCompile(`^(\s*)import\s+(.+?)\s*$`)
	fromLine   = regexp.MustCompile(`^(\s*)from\s+([A-Za-z_][\w.]*)\s+import\s+(.+?)\s*$`)
	importName = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?:\s+as\s+([A-Za-z_]\w*))?$`)

	importKeyword = regexp.MustCompile(`^\s*(import\s|from\s+\S+\s+import\b)`)
)

// ModulePath maps a dotted module name to its load() path ("a.b" -> "a/b").
func ModulePath(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), ".", "/")
}

func baseName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// RewriteImports turns Python-style import lines into load() statements and reports
// whether any were found. "import a.b as c" binds c, "import a.b" binds b and
// "from m import x as y" binds y. Trailing comments and statements after a ';' are
// kept. Lines that do not match, or that sit inside a triple-quoted string, are left
// untouched.
func RewriteImports(code string) (string, bool) {
	lines := strings.Split(code, "\n")
	found := false
	for i, info := range scanLines(lines) {
		if info.inString {
			continue
		}
		line, trailer := lines[i], ""
		if info.comment >= 0 {
			line, trailer = lines[i][:info.comment], lines[i][info.comment:]
		}
		rest := ""
		if k := strings.IndexByte(line, ';'); k >= 0 {
			line, rest = line[:k], strings.TrimSpace(line[k+1:])
		}
		stmt, ok := rewriteImport(line)
		if !ok {
			continue
		}
		if rest != "" {
			stmt += "; " + rest
		}
		if trailer != "" {
			stmt += "  " + trailer
		}
		lines[i] = stmt
		found = true
	}
	return strings.Join(lines, "\n"), found
}

// HasImportStatement reports whether any line outside a string literal starts with an
// import or from-import, whether or not it can be rewritten.
func HasImportStatement(code string) bool {
	lines := strings.Split(code, "\n")
	for i, info := range scanLines(lines) {
		if !info.inString && importKeyword.MatchString(lines[i]) {
			return true
		}
	}
	return false
}

func rewriteImport(line string) (string, bool) {
	if m := fromLine.FindStringSubmatch(line); m != nil {
		stmt, ok := fromLoad(m[2], m[3])
		return m[1] + stmt, ok
	}
	if m := importLine.FindStringSubmatch(line); m != nil {
		stmt, ok := importLoad(m[2])
		return m[1] + stmt, ok
	}
	return "", false
}

type lineInfo struct {
	// inString is set when the line starts inside a triple-quoted literal.
	inString bool
	// comment is the byte offset of a '#' comment, or -1.
	comment int
}

func scanLines(lines []string) []lineInfo {
	infos := make([]lineInfo, len(lines))
	long := "" // open triple quote
	for i, line := range lines {
		infos[i] = lineInfo{inString: long != "", comment: -1}
		short := ""
	scan:
		for j := 0; j < len(line); j++ {
			c := line[j]
			switch {
			case long != "":
				if c == '\\' {
					j++
				} else if strings.HasPrefix(line[j:], long) {
					j += len(long) - 1
					long = ""
				}
			case short != "":
				if c == '\\' {
					j++
				} else if string(c) == short {
					short = ""
				}
			case c == '#':
				infos[i].comment = j
				break scan
			case c == '"' || c == '\'':
				q := string(c)
				if strings.HasPrefix(line[j:], q+q+q) {
					long = q + q + q
					j += 2
				} else {
					short = q
				}
			}
		}
	}
	return infos
}

func importLoad(body string) (string, bool) {
	var stmts []string
	for _, part := range strings.Split(body, ",") {
		m := importName.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return "", false
		}
		mod, alias := m[1], m[2]
		base := baseName(mod)
		if alias == "" || alias == base {
			stmts = append(stmts, fmt.Sprintf("load(%q, %q)", ModulePath(mod), base))
		} else {
			stmts = append(stmts, fmt.Sprintf("load(%q, %s=%q)", ModulePath(mod), alias, base))
		}
	}
	return strings.Join(stmts, "; "), true
}

func fromLoad(mod, body string) (string, bool) {
	body = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(body), "("), ")")
	args := []string{fmt.Sprintf("%q", ModulePath(mod))}
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := importName.FindStringSubmatch(part)
		if m == nil || strings.Contains(m[1], ".") {
			return "", false
		}
		if m[2] == "" || m[2] == m[1] {
			args = append(args, fmt.Sprintf("%q", m[1]))
		} else {
			args = append(args, fmt.Sprintf("%s=%q", m[2], m[1]))
		}
	}
	if len(args) == 1 {
		return "", false
	}
	return "load(" + strings.Join(args, ", ") + ")", true
}
