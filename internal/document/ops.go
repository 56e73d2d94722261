package document

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tabedit/internal/coerce"
	"tabedit/internal/model"
)

// Every mutating operation validates first, then calls PushUndo exactly once, then
// mutates. A rejected operation leaves the table and both stacks untouched.

func (d *Document) mutated() {
	d.dirty = true
	d.clampCursor()
}

func normalizeColumnName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// InsertRow inserts a blank row before index at and moves the cursor onto it.
func (d *Document) InsertRow(at int) error { return d.InsertRows(at, 1) }

// InsertRows inserts n blank rows before index at in one undo step and moves the
// cursor onto the first of them.
func (d *Document) InsertRows(at, n int) error {
	t := d.Table()
	if at < 0 || at > t.NumRows() {
		return opErr("insert row", "row %d out of range", at+1)
	}
	d.PushUndo()
	for i := 0; i < max(n, 1); i++ {
		t.InsertRow(at)
	}
	d.Active().Cursor.Row = at
	d.mutated()
	return nil
}

// DeleteRow removes row at. Deleting the only row leaves one blank row.
func (d *Document) DeleteRow(at int) error { return d.DeleteRows(at, 1) }

// DeleteRows removes up to n rows starting at at in one undo step.
func (d *Document) DeleteRows(at, n int) error {
	t := d.Table()
	if at < 0 || at >= t.NumRows() {
		return opErr("delete row", "row %d out of range", at+1)
	}
	n = min(max(n, 1), t.NumRows()-at)
	d.PushUndo()
	for i := 0; i < n; i++ {
		t.DeleteRow(at)
	}
	t.EnsureNonEmpty()
	d.mutated()
	return nil
}

// InsertColumn inserts an empty column before index at. An empty name picks a
// unique default.
func (d *Document) InsertColumn(at int, name string, typ model.ColumnType) error {
	t := d.Table()
	if at < 0 || at > t.NumCols() {
		return opErr("insert column", "column %d out of range", at+1)
	}
	name = normalizeColumnName(name)
	if name == "" {
		name = t.UniqueColumnName(fmt.Sprintf("column%d", t.NumCols()+1))
	} else if c, _ := t.Column(name); c != nil {
		return opErr("insert column", "column %q already exists", name)
	}
	if typ == "" {
		typ = model.TypeText
	}
	d.PushUndo()
	t.InsertColumn(at, &model.Column{Name: name, Type: typ})
	d.Active().Cursor.Col = at
	d.mutated()
	return nil
}

// InsertColumns inserts n empty text columns with default names before index at in
// one undo step.
func (d *Document) InsertColumns(at, n int) error {
	t := d.Table()
	if at < 0 || at > t.NumCols() {
		return opErr("insert column", "column %d out of range", at+1)
	}
	d.PushUndo()
	for i := 0; i < max(n, 1); i++ {
		name := t.UniqueColumnName(fmt.Sprintf("column%d", t.NumCols()+1))
		t.InsertColumn(at+i, &model.Column{Name: name, Type: model.TypeText})
	}
	d.Active().Cursor.Col = at
	d.mutated()
	return nil
}

// DeleteColumn removes column at. Deleting the only column leaves one blank column.
func (d *Document) DeleteColumn(at int) error { return d.DeleteColumns(at, 1) }

// DeleteColumns removes up to n columns starting at at in one undo step.
func (d *Document) DeleteColumns(at, n int) error {
	t := d.Table()
	if at < 0 || at >= t.NumCols() {
		return opErr("delete column", "column %d out of range", at+1)
	}
	n = min(max(n, 1), t.NumCols()-at)
	d.PushUndo()
	rows := t.NumRows()
	for i := 0; i < n; i++ {
		delete(d.Active().Layout.ColumnWidths, t.Columns[at].Name)
		t.DeleteColumn(at)
	}
	if t.NumCols() == 0 {
		t.Columns = []*model.Column{{Name: "column1", Type: model.TypeText, Values: make([]any, rows)}}
	}
	t.EnsureNonEmpty()
	d.mutated()
	return nil
}

func (d *Document) RenameColumn(at int, name string) error {
	t := d.Table()
	if at < 0 || at >= t.NumCols() {
		return opErr("rename column", "column %d out of range", at+1)
	}
	name = normalizeColumnName(name)
	if name == "" {
		return opErr("rename column", "name is empty")
	}
	old := t.Columns[at].Name
	if old == name {
		return opErr("rename column", "column is already named %q", name)
	}
	if c, _ := t.Column(name); c != nil {
		return opErr("rename column", "column %q already exists", name)
	}
	d.PushUndo()
	t.Columns[at].Name = name
	l := &d.Active().Layout
	if w, ok := l.ColumnWidths[old]; ok {
		delete(l.ColumnWidths, old)
		l.ColumnWidths[name] = w
	}
	d.mutated()
	return nil
}

// RetypeColumn converts every cell of column at to typ. Any cell that fails to
// convert rejects the whole operation.
func (d *Document) RetypeColumn(at int, typ model.ColumnType) error {
	t := d.Table()
	if at < 0 || at >= t.NumCols() {
		return opErr("retype column", "column %d out of range", at+1)
	}
	col := t.Columns[at]
	if col.Type == typ {
		return opErr("retype column", "column %q is already %s", col.Name, typ)
	}
	converted := make([]any, len(col.Values))
	for r, v := range col.Values {
		nv, err := coerce.Convert(v, typ)
		if err != nil {
			return fmt.Errorf("row %d: %w", r+1, err)
		}
		converted[r] = nv
	}
	d.PushUndo()
	col.Type = typ
	col.Values = converted
	d.mutated()
	return nil
}

// SetCell coerces raw against the column type and writes it. A *coerce.Error leaves
// the cell unchanged.
func (d *Document) SetCell(row, col int, raw string) error {
	t := d.Table()
	if !t.InBounds(row, col) {
		return opErr("set cell", "cell (%d, %d) out of range", row+1, col+1)
	}
	v, err := coerce.Coerce(raw, t.Columns[col].Type)
	if err != nil {
		return err
	}
	d.PushUndo()
	t.SetCell(row, col, v)
	d.mutated()
	return nil
}

func (d *Document) ClearCell(row, col int) error {
	t := d.Table()
	if !t.InBounds(row, col) {
		return opErr("clear cell", "cell (%d, %d) out of range", row+1, col+1)
	}
	d.PushUndo()
	t.SetCell(row, col, nil)
	d.mutated()
	return nil
}

// ClearRange writes the null value into every cell of r.
func (d *Document) ClearRange(r model.Rect) error {
	t := d.Table()
	r = r.Clamp(t.NumRows(), t.NumCols())
	d.PushUndo()
	for row := r.Top; row <= r.Bottom; row++ {
		for col := r.Left; col <= r.Right; col++ {
			t.SetCell(row, col, nil)
		}
	}
	d.mutated()
	return nil
}

// FillRange writes raw into every cell of r, coerced per column. It is all-or-nothing.
func (d *Document) FillRange(r model.Rect, raw string) error {
	t := d.Table()
	r = r.Clamp(t.NumRows(), t.NumCols())
	values := make([]any, 0, r.Cols())
	for col := r.Left; col <= r.Right; col++ {
		v, err := coerce.Coerce(raw, t.Columns[col].Type)
		if err != nil {
			return fmt.Errorf("column %q: %w", t.Columns[col].Name, err)
		}
		values = append(values, v)
	}
	d.PushUndo()
	for row := r.Top; row <= r.Bottom; row++ {
		for col := r.Left; col <= r.Right; col++ {
			t.SetCell(row, col, values[col-r.Left])
		}
	}
	d.mutated()
	return nil
}

// ExpandRows grows the display height of every row by n lines.
func (d *Document) ExpandRows(n int) error {
	l := &d.Active().Layout
	if n < 1 {
		n = 1
	}
	if l.RowHeight >= MaxRowHeight {
		return opErr("expand rows", "rows are already at the maximum height")
	}
	d.PushUndo()
	l.RowHeight = clamp(l.RowHeight+n, 1, MaxRowHeight)
	d.dirty = true
	return nil
}

func (d *Document) CollapseRows() error {
	l := &d.Active().Layout
	if l.RowHeight <= 1 {
		return opErr("collapse rows", "rows are already collapsed")
	}
	d.PushUndo()
	l.RowHeight = 1
	d.dirty = true
	return nil
}

// ResizeColumn changes a column's display width by delta characters.
func (d *Document) ResizeColumn(col, delta int) error {
	t := d.Table()
	if col < 0 || col >= t.NumCols() {
		return opErr("resize column", "column %d out of range", col+1)
	}
	s := d.Active()
	name := t.Columns[col].Name
	cur := s.Layout.ColumnWidth(name)
	next := clamp(cur+delta, MinColumnWidth, MaxColumnWidth)
	if next == cur {
		return opErr("resize column", "column %q is already %d wide", name, cur)
	}
	d.PushUndo()
	if s.Layout.ColumnWidths == nil {
		s.Layout.ColumnWidths = map[string]int{}
	}
	s.Layout.ColumnWidths[name] = next
	d.dirty = true
	return nil
}

// Commit replaces the active table with a candidate produced by code execution.
func (d *Document) Commit(t *model.Table) error {
	if t == nil {
		return opErr("commit", "no table")
	}
	t.EnsureNonEmpty()
	d.PushUndo()
	d.Active().Table = t
	d.mutated()
	return nil
}
