package format

import (
	"bytes"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN writes v as EDN. Maps become keyword-keyed maps with sorted keys and
// slices become vectors.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	e := ednEncoder{pretty: pretty, indent: 2}
	e.value(&buf, x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednEncoder struct {
	pretty bool
	indent int
}

func (e ednEncoder) value(buf *bytes.Buffer, v any, level int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("nil")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		buf.WriteString(strconv.Quote(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case []any:
		items := make([]func(), len(t))
		for i, it := range t {
			items[i] = func() { e.value(buf, it, level+1) }
		}
		e.coll(buf, "[", "]", items, level)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]func(), len(keys))
		for i, k := range keys {
			items[i] = func() {
				buf.WriteString(ednKey(k))
				buf.WriteByte(' ')
				e.value(buf, t[k], level+1)
			}
		}
		e.coll(buf, "{", "}", items, level)
	default:
		buf.WriteString(strconv.Quote("unsupported"))
	}
}

// coll writes a delimited collection, one item per line when pretty.
func (e ednEncoder) coll(buf *bytes.Buffer, open, close string, items []func(), level int) {
	buf.WriteString(open)
	if len(items) == 0 {
		buf.WriteString(close)
		return
	}
	pad := strings.Repeat(" ", (level+1)*e.indent)
	for i, item := range items {
		switch {
		case e.pretty:
			buf.WriteByte('\n')
			buf.WriteString(pad)
		case i > 0:
			buf.WriteByte(' ')
		}
		item()
	}
	if e.pretty {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(" ", level*e.indent))
	}
	buf.WriteString(close)
}

var keywordRe = regexp.MustCompile(`^[A-Za-z*+!_?<>=-][A-Za-z0-9*+!_?<>=./-]*$`)

// ednKey renders a map key as a keyword when it is a valid one, else as a string.
// Column names often contain spaces, so both occur.
func ednKey(k string) string {
	if keywordRe.MatchString(k) {
		return ":" + k
	}
	return strconv.Quote(k)
}
