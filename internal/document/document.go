// Package document owns the sheets being edited, their cursors and their undo history.
package document

import (
	"strings"

	"tabedit/internal/model"
)

const (
	// DefaultSheetName names the implicit sheet used when a file has no named sheets.
	DefaultSheetName = "default"

	DefaultColumnWidth = 12
	MinColumnWidth     = 3
	MaxColumnWidth     = 80
	MaxRowHeight       = 20
)

type HighlightMode int

const (
	HighlightCell HighlightMode = iota
	HighlightRow
	HighlightColumn
)

func (h HighlightMode) Next() HighlightMode {
	return (h + 1) % 3
}

func (h HighlightMode) String() string {
	switch h {
	case HighlightRow:
		return "row"
	case HighlightColumn:
		return "column"
	default:
		return "cell"
	}
}

type Cursor struct {
	Row int
	Col int
}

type Viewport struct {
	TopRow  int
	LeftCol int
}

// Layout holds per-sheet display sizing that is still undoable.
type Layout struct {
	RowHeight    int
	ColumnWidths map[string]int
}

func (l Layout) clone() Layout {
	out := Layout{RowHeight: l.RowHeight}
	if len(l.ColumnWidths) > 0 {
		out.ColumnWidths = make(map[string]int, len(l.ColumnWidths))
		for k, v := range l.ColumnWidths {
			out.ColumnWidths[k] = v
		}
	}
	return out
}

// ColumnWidth returns the display width for a column name.
func (l Layout) ColumnWidth(name string) int {
	if w, ok := l.ColumnWidths[name]; ok && w > 0 {
		return w
	}
	return DefaultColumnWidth
}

// Sheet is one named table plus its view state and history.
type Sheet struct {
	Name      string
	Table     *model.Table
	Cursor    Cursor
	Viewport  Viewport
	Highlight HighlightMode
	Layout    Layout

	undo []Snapshot
	redo []Snapshot
}

func NewSheet(name string, t *model.Table) *Sheet {
	if t == nil {
		t = model.BlankTable()
	}
	t.EnsureNonEmpty()
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSheetName
	}
	return &Sheet{Name: name, Table: t, Layout: Layout{RowHeight: 1}}
}

// Document is the ordered set of sheets with exactly one active sheet.
type Document struct {
	sheets []*Sheet
	active int
	dirty  bool
}

// New returns a document holding t as the implicit default sheet.
func New(t *model.Table) *Document {
	return &Document{sheets: []*Sheet{NewSheet(DefaultSheetName, t)}}
}

// FromSheets builds a document from already-named sheets. An empty list yields the
// implicit default sheet.
func FromSheets(sheets ...*Sheet) *Document {
	if len(sheets) == 0 {
		return New(nil)
	}
	return &Document{sheets: sheets}
}

func (d *Document) Active() *Sheet {
	return d.sheets[d.active]
}

// Table returns the live active table. Callers that hand it to code execution must
// Clone it first.
func (d *Document) Table() *model.Table {
	return d.Active().Table
}

func (d *Document) Sheets() []*Sheet {
	return d.sheets
}

func (d *Document) SheetNames() []string {
	out := make([]string, 0, len(d.sheets))
	for _, s := range d.sheets {
		out = append(out, s.Name)
	}
	return out
}

func (d *Document) ActiveIndex() int { return d.active }

func (d *Document) Dirty() bool { return d.dirty }

func (d *Document) MarkSaved() { d.dirty = false }

func (d *Document) sheetIndex(name string) int {
	for i, s := range d.sheets {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// AddSheet appends a new sheet and makes it active.
func (d *Document) AddSheet(name string, t *model.Table) (*Sheet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, opErr("add sheet", "name is empty")
	}
	if d.sheetIndex(name) >= 0 {
		return nil, opErr("add sheet", "sheet %q already exists", name)
	}
	s := NewSheet(name, t)
	d.sheets = append(d.sheets, s)
	d.active = len(d.sheets) - 1
	d.dirty = true
	return s, nil
}

// SwitchSheet activates the named sheet. It never touches undo history.
func (d *Document) SwitchSheet(name string) error {
	i := d.sheetIndex(strings.TrimSpace(name))
	if i < 0 {
		return SheetNotFoundError{Name: name}
	}
	d.active = i
	return nil
}

func (d *Document) NextSheet() {
	d.active = (d.active + 1) % len(d.sheets)
}

func (d *Document) PrevSheet() {
	d.active = (d.active - 1 + len(d.sheets)) % len(d.sheets)
}

// MoveCursor moves by (dr, dc), clamping to the table bounds.
func (d *Document) MoveCursor(dr, dc int) {
	s := d.Active()
	d.SetCursor(s.Cursor.Row+dr, s.Cursor.Col+dc)
}

func (d *Document) SetCursor(row, col int) {
	s := d.Active()
	s.Cursor.Row = clamp(row, 0, s.Table.NumRows()-1)
	s.Cursor.Col = clamp(col, 0, s.Table.NumCols()-1)
}

func (d *Document) Cursor() Cursor {
	return d.Active().Cursor
}

func (d *Document) clampCursor() {
	s := d.Active()
	d.SetCursor(s.Cursor.Row, s.Cursor.Col)
}

// ScrollTo adjusts the viewport so the cursor is visible in a window of
// visibleRows x visibleCols cells.
func (d *Document) ScrollTo(visibleRows, visibleCols int) {
	s := d.Active()
	if visibleRows < 1 {
		visibleRows = 1
	}
	if visibleCols < 1 {
		visibleCols = 1
	}
	v := &s.Viewport
	if s.Cursor.Row < v.TopRow {
		v.TopRow = s.Cursor.Row
	}
	if s.Cursor.Row >= v.TopRow+visibleRows {
		v.TopRow = s.Cursor.Row - visibleRows + 1
	}
	if s.Cursor.Col < v.LeftCol {
		v.LeftCol = s.Cursor.Col
	}
	if s.Cursor.Col >= v.LeftCol+visibleCols {
		v.LeftCol = s.Cursor.Col - visibleCols + 1
	}
	v.TopRow = clamp(v.TopRow, 0, s.Table.NumRows()-1)
	v.LeftCol = clamp(v.LeftCol, 0, s.Table.NumCols()-1)
}

// CycleHighlight advances the highlight mode. It is view state and not undoable.
func (d *Document) CycleHighlight() HighlightMode {
	s := d.Active()
	s.Highlight = s.Highlight.Next()
	return s.Highlight
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
