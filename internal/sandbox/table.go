package sandbox

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"tabedit/internal/model"
)

// Table wraps a model.Table as the Starlark value bound to df. Its methods are the
// only way executed code can change table data.
type Table struct {
	t      *model.Table
	frozen bool
}

var (
	_ starlark.HasSetKey = (*Table)(nil)
	_ starlark.Sequence  = (*Table)(nil)
	_ starlark.HasAttrs  = (*Table)(nil)
)

var errFrozen = errors.New("cannot modify a frozen table")

// NewTable wraps t without copying it.
func NewTable(t *model.Table) *Table {
	return &Table{t: t}
}

// Model returns the wrapped table.
func (t *Table) Model() *model.Table { return t.t }

func (t *Table) String() string        { return renderTable(t.t, 10) }
func (t *Table) Type() string          { return "table" }
func (t *Table) Freeze()               { t.frozen = true }
func (t *Table) Truth() starlark.Bool  { return t.t.NumRows() > 0 }
func (t *Table) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: table") }
func (t *Table) Len() int              { return t.t.NumRows() }

func (t *Table) checkMutable() error {
	if t.frozen {
		return errFrozen
	}
	return nil
}

// Get implements df[name] (a Series copy) and df[i] (a row dict).
func (t *Table) Get(k starlark.Value) (starlark.Value, bool, error) {
	switch key := k.(type) {
	case starlark.String:
		c, _ := t.t.Column(string(key))
		if c == nil {
			return nil, false, fmt.Errorf("no column %q (columns: %s)", string(key), strings.Join(t.t.ColumnNames(), ", "))
		}
		return seriesFromColumn(c), true, nil
	case starlark.Int:
		i, err := t.rowIndex(key, false)
		if err != nil {
			return nil, false, err
		}
		return t.rowDict(i), true, nil
	}
	return nil, false, fmt.Errorf("table index must be a column name or row number, not %s", k.Type())
}

// SetKey implements df[name] = value. A series or list must match the row count; a
// scalar is broadcast. The column type is inferred from the new values.
func (t *Table) SetKey(k, v starlark.Value) error {
	if err := t.checkMutable(); err != nil {
		return err
	}
	name, ok := starlark.AsString(k)
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("column name must be a non-empty string, not %s", k.Type())
	}
	rows := t.t.NumRows()
	vals, isSeq, err := valuesOf(v)
	if err != nil {
		return err
	}
	if !isSeq {
		cv, err := fromStarlark(v)
		if err != nil {
			return err
		}
		vals = make([]any, rows)
		for i := range vals {
			vals[i] = cv
		}
	} else if len(vals) != rows {
		return fmt.Errorf("cannot assign %d values to column %q of a table with %d rows", len(vals), name, rows)
	}

	typ := model.InferType(vals)
	if s, ok := v.(*Series); ok && allNull(vals) {
		typ = s.typ
	}
	if c, _ := t.t.Column(name); c != nil {
		if allNull(vals) {
			typ = c.Type
		}
		c.Type = typ
		c.Values = vals
		return nil
	}
	t.t.InsertColumn(t.t.NumCols(), &model.Column{Name: name, Type: typ, Values: vals})
	return nil
}

func allNull(vals []any) bool {
	for _, v := range vals {
		if v != nil {
			return false
		}
	}
	return true
}

func (t *Table) Iterate() starlark.Iterator { return &rowIterator{t: t} }

type rowIterator struct {
	t *Table
	i int
}

func (it *rowIterator) Next(p *starlark.Value) bool {
	if it.i >= it.t.t.NumRows() {
		return false
	}
	*p = it.t.rowDict(it.i)
	it.i++
	return true
}

func (it *rowIterator) Done() {}

func (t *Table) rowDict(i int) *starlark.Dict {
	d := starlark.NewDict(t.t.NumCols())
	for _, c := range t.t.Columns {
		_ = d.SetKey(starlark.String(c.Name), toStarlark(c.Values[i]))
	}
	return d
}

// rowIndex resolves a (possibly negative) row number. allowEnd permits i == rows.
func (t *Table) rowIndex(v starlark.Value, allowEnd bool) (int, error) {
	i, err := starlark.AsInt32(v)
	if err != nil {
		return 0, fmt.Errorf("row must be an int: %v", err)
	}
	rows := t.t.NumRows()
	if i < 0 {
		i += rows
	}
	limit := rows
	if allowEnd {
		limit++
	}
	if i < 0 || i >= limit {
		return 0, fmt.Errorf("row %d out of range (%d rows)", i, rows)
	}
	return i, nil
}

func (t *Table) colIndex(v starlark.Value) (int, error) {
	if s, ok := starlark.AsString(v); ok {
		_, i := t.t.Column(s)
		if i < 0 {
			return 0, fmt.Errorf("no column %q", s)
		}
		return i, nil
	}
	i, err := starlark.AsInt32(v)
	if err != nil {
		return 0, fmt.Errorf("column must be a name or index, not %s", v.Type())
	}
	if i < 0 {
		i += t.t.NumCols()
	}
	if i < 0 || i >= t.t.NumCols() {
		return 0, fmt.Errorf("column %d out of range", i)
	}
	return i, nil
}

var tableMethods = map[string]*starlark.Builtin{
	"head":          starlark.NewBuiltin("head", tableHead),
	"tail":          starlark.NewBuiltin("tail", tableTail),
	"copy":          starlark.NewBuiltin("copy", tableCopy),
	"row":           starlark.NewBuiltin("row", tableRow),
	"get":           starlark.NewBuiltin("get", tableGet),
	"set":           starlark.NewBuiltin("set", tableSet),
	"add_column":    starlark.NewBuiltin("add_column", tableAddColumn),
	"drop_column":   starlark.NewBuiltin("drop_column", tableDropColumn),
	"rename_column": starlark.NewBuiltin("rename_column", tableRenameColumn),
	"insert_row":    starlark.NewBuiltin("insert_row", tableInsertRow),
	"append_row":    starlark.NewBuiltin("append_row", tableAppendRow),
	"delete_row":    starlark.NewBuiltin("delete_row", tableDeleteRow),
	"filter":        starlark.NewBuiltin("filter", tableFilter),
	"sort_by":       starlark.NewBuiltin("sort_by", tableSortBy),
	"to_dicts":      starlark.NewBuiltin("to_dicts", tableToDicts),
	"sum":           starlark.NewBuiltin("sum", tableAggregate),
	"mean":          starlark.NewBuiltin("mean", tableAggregate),
	"min":           starlark.NewBuiltin("min", tableAggregate),
	"max":           starlark.NewBuiltin("max", tableAggregate),
	"count":         starlark.NewBuiltin("count", tableAggregate),
}

func (t *Table) Attr(name string) (starlark.Value, error) {
	switch name {
	case "columns":
		names := t.t.ColumnNames()
		elems := make([]starlark.Value, len(names))
		for i, n := range names {
			elems[i] = starlark.String(n)
		}
		return starlark.NewList(elems), nil
	case "shape":
		return starlark.Tuple{starlark.MakeInt(t.t.NumRows()), starlark.MakeInt(t.t.NumCols())}, nil
	case "dtypes":
		d := starlark.NewDict(t.t.NumCols())
		for _, c := range t.t.Columns {
			_ = d.SetKey(starlark.String(c.Name), starlark.String(string(c.Type)))
		}
		return d, nil
	case ExtAttr:
		return &extNamespace{table: t}, nil
	}
	if b, ok := tableMethods[name]; ok {
		return b.BindReceiver(t), nil
	}
	return nil, nil
}

func (t *Table) AttrNames() []string {
	names := []string{"columns", "shape", "dtypes", ExtAttr}
	for k := range tableMethods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func receiver(b *starlark.Builtin) *Table { return b.Receiver().(*Table) }

func sliceRows(src *model.Table, from, to int) *model.Table {
	out := &model.Table{Columns: make([]*model.Column, len(src.Columns))}
	for i, c := range src.Columns {
		vals := make([]any, to-from)
		copy(vals, c.Values[from:to])
		out.Columns[i] = &model.Column{Name: c.Name, Type: c.Type, Values: vals}
	}
	return out
}

func tableHead(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n := 5
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	t := receiver(b)
	rows := t.t.NumRows()
	if n < 0 || n > rows {
		n = rows
	}
	return NewTable(sliceRows(t.t, 0, n)), nil
}

func tableTail(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n := 5
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	t := receiver(b)
	rows := t.t.NumRows()
	if n < 0 || n > rows {
		n = rows
	}
	return NewTable(sliceRows(t.t, rows-n, rows)), nil
}

func tableCopy(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return NewTable(receiver(b).t.Clone()), nil
}

func tableRow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &rv); err != nil {
		return nil, err
	}
	t := receiver(b)
	i, err := t.rowIndex(rv, false)
	if err != nil {
		return nil, err
	}
	return t.rowDict(i), nil
}

func tableGet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rv, cv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &rv, &cv); err != nil {
		return nil, err
	}
	t := receiver(b)
	r, err := t.rowIndex(rv, false)
	if err != nil {
		return nil, err
	}
	c, err := t.colIndex(cv)
	if err != nil {
		return nil, err
	}
	return toStarlark(t.t.Cell(r, c)), nil
}

func tableSet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rv, cv, v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &rv, &cv, &v); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	r, err := t.rowIndex(rv, false)
	if err != nil {
		return nil, err
	}
	c, err := t.colIndex(cv)
	if err != nil {
		return nil, err
	}
	raw, err := fromStarlark(v)
	if err != nil {
		return nil, err
	}
	val, err := cast(raw, t.t.Columns[c].Type)
	if err != nil {
		return nil, err
	}
	t.t.SetCell(r, c, val)
	return starlark.None, nil
}

func tableAddColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, typName string
	var values starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "values?", &values, "type?", &typName); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: name is empty", b.Name())
	}
	if c, _ := t.t.Column(name); c != nil {
		return nil, fmt.Errorf("%s: column %q already exists", b.Name(), name)
	}
	rows := t.t.NumRows()
	vals := make([]any, rows)
	if values != starlark.None {
		got, isSeq, err := valuesOf(values)
		if err != nil {
			return nil, err
		}
		if !isSeq || len(got) != rows {
			return nil, fmt.Errorf("%s: values must be a sequence of %d items", b.Name(), rows)
		}
		vals = got
	}
	typ := model.InferType(vals)
	if typName != "" {
		ct, err := model.ParseColumnType(typName)
		if err != nil {
			return nil, err
		}
		typ = ct
		for i, v := range vals {
			cv, err := cast(v, typ)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %v", b.Name(), i+1, err)
			}
			vals[i] = cv
		}
	}
	t.t.InsertColumn(t.t.NumCols(), &model.Column{Name: name, Type: typ, Values: vals})
	return starlark.None, nil
}

func tableDropColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cv); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	c, err := t.colIndex(cv)
	if err != nil {
		return nil, err
	}
	t.t.DeleteColumn(c)
	return starlark.None, nil
}

func tableRenameColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cv starlark.Value
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &cv, &name); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	c, err := t.colIndex(cv)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: name is empty", b.Name())
	}
	if other, i := t.t.Column(name); other != nil && i != c {
		return nil, fmt.Errorf("%s: column %q already exists", b.Name(), name)
	}
	t.t.Columns[c].Name = name
	return starlark.None, nil
}

// rowValues maps a list (positional) or dict (by column name) onto typed cells.
func (t *Table) rowValues(v starlark.Value) ([]any, error) {
	out := make([]any, t.t.NumCols())
	if v == nil || v == starlark.None {
		return out, nil
	}
	if d, ok := v.(*starlark.Dict); ok {
		for _, item := range d.Items() {
			c, err := t.colIndex(item[0])
			if err != nil {
				return nil, err
			}
			raw, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			if out[c], err = cast(raw, t.t.Columns[c].Type); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	vals, isSeq, err := valuesOf(v)
	if err != nil {
		return nil, err
	}
	if !isSeq || len(vals) != t.t.NumCols() {
		return nil, fmt.Errorf("row values must be a dict or a sequence of %d items", t.t.NumCols())
	}
	for i, raw := range vals {
		if out[i], err = cast(raw, t.t.Columns[i].Type); err != nil {
			return nil, fmt.Errorf("column %q: %v", t.t.Columns[i].Name, err)
		}
	}
	return out, nil
}

func (t *Table) insertRow(at int, v starlark.Value) error {
	vals, err := t.rowValues(v)
	if err != nil {
		return err
	}
	t.t.InsertRow(at)
	for c, cv := range vals {
		t.t.SetCell(at, c, cv)
	}
	return nil
}

func tableInsertRow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iv starlark.Value
	var values starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "index", &iv, "values?", &values); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	at, err := t.rowIndex(iv, true)
	if err != nil {
		return nil, err
	}
	return starlark.None, t.insertRow(at, values)
}

func tableAppendRow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var values starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "values?", &values); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	return starlark.None, t.insertRow(t.t.NumRows(), values)
}

func tableDeleteRow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &iv); err != nil {
		return nil, err
	}
	t := receiver(b)
	if err := t.checkMutable(); err != nil {
		return nil, err
	}
	at, err := t.rowIndex(iv, false)
	if err != nil {
		return nil, err
	}
	t.t.DeleteRow(at)
	return starlark.None, nil
}

func tableFilter(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
		return nil, err
	}
	t := receiver(b)
	out := sliceRows(t.t, 0, 0)
	for i := 0; i < t.t.NumRows(); i++ {
		keep, err := starlark.Call(thread, fn, starlark.Tuple{t.rowDict(i)}, nil)
		if err != nil {
			return nil, err
		}
		if !keep.Truth() {
			continue
		}
		for c, col := range t.t.Columns {
			out.Columns[c].Values = append(out.Columns[c].Values, col.Values[i])
		}
	}
	return NewTable(out), nil
}

func tableSortBy(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cv starlark.Value
	reverse := false
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "column", &cv, "reverse?", &reverse); err != nil {
		return nil, err
	}
	t := receiver(b)
	c, err := t.colIndex(cv)
	if err != nil {
		return nil, err
	}
	rows := t.t.NumRows()
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	key := t.t.Columns[c].Values
	// Nulls sort last in both directions.
	sort.SliceStable(order, func(i, j int) bool {
		a, b := key[order[i]], key[order[j]]
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case reverse:
			return lessCell(b, a)
		default:
			return lessCell(a, b)
		}
	})
	out := sliceRows(t.t, 0, 0)
	for _, r := range order {
		for ci, col := range t.t.Columns {
			out.Columns[ci].Values = append(out.Columns[ci].Values, col.Values[r])
		}
	}
	return NewTable(out), nil
}

func tableToDicts(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	t := receiver(b)
	elems := make([]starlark.Value, t.t.NumRows())
	for i := range elems {
		elems[i] = t.rowDict(i)
	}
	return starlark.NewList(elems), nil
}

func tableAggregate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cv); err != nil {
		return nil, err
	}
	t := receiver(b)
	c, err := t.colIndex(cv)
	if err != nil {
		return nil, err
	}
	return reduce(b.Name(), t.t.Columns[c].Values)
}
