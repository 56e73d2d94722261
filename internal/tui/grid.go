package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"tabedit/internal/coerce"
	"tabedit/internal/document"
	"tabedit/internal/editor"
	"tabedit/internal/model"
)

const (
	colSep    = "│"
	nullGlyph = "·"
)

// fit truncates s to w cells and pads it with spaces to exactly w.
func fit(s string, w int) string {
	s = ansi.Truncate(s, w, "…")
	if pad := w - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// fitCols counts the columns starting at left that fit in width cells.
func fitCols(t *model.Table, l document.Layout, left, width int) int {
	used, n := 0, 0
	for c := left; c < t.NumCols(); c++ {
		used += l.ColumnWidth(t.Columns[c].Name) + 1
		if used > width && n > 0 {
			break
		}
		n++
	}
	return max(n, 1)
}

// scrollGrid keeps the cursor inside the visible window of a grid of the given size.
func scrollGrid(doc *document.Document, width, height int) (rows, cols int) {
	s := doc.Active()
	rowH := max(s.Layout.RowHeight, 1)
	rows = max((height-1)/rowH, 1)
	gutter := gutterWidth(s.Table)
	for i := 0; i <= s.Table.NumCols(); i++ {
		cols = fitCols(s.Table, s.Layout, s.Viewport.LeftCol, width-gutter)
		before := s.Viewport
		doc.ScrollTo(rows, cols)
		if s.Viewport == before {
			break
		}
	}
	return rows, fitCols(s.Table, s.Layout, s.Viewport.LeftCol, width-gutter)
}

func gutterWidth(t *model.Table) int {
	return len(strconv.Itoa(t.NumRows())) + 1
}

// renderGrid draws the visible part of the active sheet into width x height cells.
func renderGrid(doc *document.Document, sess *editor.Session, st styles, width, height int) string {
	visRows, visCols := scrollGrid(doc, width, height)
	s := doc.Active()
	t := s.Table
	cur := s.Cursor
	rowH := max(s.Layout.RowHeight, 1)
	gutter := gutterWidth(t)
	left, top := s.Viewport.LeftCol, s.Viewport.TopRow
	lastCol := min(left+visCols, t.NumCols())
	lastRow := min(top+visRows, t.NumRows())

	var sel *model.Rect
	if sess.Mode == editor.ModeVisual {
		r := sess.Selection(doc)
		sel = &r
	}
	editing := sess.Mode == editor.ModeCellInsert || sess.Mode == editor.ModeCellNormal

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", gutter))
	for c := left; c < lastCol; c++ {
		col := t.Columns[c]
		w := s.Layout.ColumnWidth(col.Name)
		h := st.header
		if c == cur.Col {
			h = h.Underline(true)
		}
		b.WriteString(st.gutter.Render(colSep))
		b.WriteString(h.Render(fit(col.Name, w)))
	}

	for r := top; r < lastRow; r++ {
		cells := make([][]string, 0, lastCol-left)
		for c := left; c < lastCol; c++ {
			w := s.Layout.ColumnWidth(t.Columns[c].Name)
			style, marked := cellStyle(st, s, sel, r, c)
			if editing && r == sess.Buffer.Row && c == sess.Buffer.Col {
				cells = append(cells, editLines(st, &sess.Buffer, w, rowH))
				continue
			}
			cells = append(cells, cellLines(st, style, marked, t.Cell(r, c), w, rowH))
		}
		for line := 0; line < rowH; line++ {
			b.WriteByte('\n')
			num := ""
			if line == 0 {
				num = strconv.Itoa(r + 1)
			}
			g := st.gutter
			if r == cur.Row {
				g = st.header
			}
			b.WriteString(g.Render(lipgloss.PlaceHorizontal(gutter-1, lipgloss.Right, num) + " "))
			for i := range cells {
				b.WriteString(st.gutter.Render(colSep))
				b.WriteString(cells[i][line])
			}
		}
	}
	return b.String()
}

// cellStyle picks the style of a cell; marked is false for plain cells.
func cellStyle(st styles, s *document.Sheet, sel *model.Rect, r, c int) (lipgloss.Style, bool) {
	cur := s.Cursor
	switch {
	case r == cur.Row && c == cur.Col:
		return st.cursor, true
	case sel != nil && sel.Contains(r, c):
		return st.selection, true
	case s.Highlight == document.HighlightRow && r == cur.Row:
		return st.band, true
	case s.Highlight == document.HighlightColumn && c == cur.Col:
		return st.band, true
	}
	return st.cell, false
}

// cellLines renders a value into rowH styled lines of width w.
func cellLines(st styles, style lipgloss.Style, marked bool, v any, w, rowH int) []string {
	text := coerce.Format(v)
	if v == nil {
		text = nullGlyph
		if !marked {
			style = st.null
		}
	}
	text = strings.ReplaceAll(text, "\t", " ")
	var parts []string
	if rowH == 1 {
		parts = []string{strings.ReplaceAll(text, "\n", " ")}
	} else {
		parts = strings.Split(ansi.Hardwrap(text, w, true), "\n")
	}
	out := make([]string, rowH)
	for i := range out {
		p := ""
		if i < len(parts) {
			p = parts[i]
		}
		if i == rowH-1 && len(parts) > rowH {
			p += "…"
		}
		out[i] = style.Render(fit(p, w))
	}
	return out
}

// editLines renders the staged buffer with its cursor.
func editLines(st styles, buf *editor.CellBuffer, w, rowH int) []string {
	text, at := buf.Visible(w - 1)
	runes := []rune(text)
	var b strings.Builder
	pos := 0
	for _, r := range runes {
		if pos == at {
			b.WriteString(st.cursor.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
		pos += ansi.StringWidth(string(r))
	}
	if at >= pos {
		b.WriteString(st.cursor.Render(" "))
		pos++
	}
	line := b.String()
	if pad := w - pos; pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	out := make([]string, rowH)
	out[0] = st.selection.Render(line)
	for i := 1; i < rowH; i++ {
		out[i] = strings.Repeat(" ", w)
	}
	return out
}
