package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ColumnType is the declared semantic type of a column.
type ColumnType string

const (
	TypeInt       ColumnType = "int"
	TypeFloat     ColumnType = "float"
	TypeBool      ColumnType = "bool"
	TypeTimestamp ColumnType = "timestamp"
	TypeText      ColumnType = "text"
)

// ColumnTypes lists the supported types in display order.
var ColumnTypes = []ColumnType{TypeInt, TypeFloat, TypeBool, TypeTimestamp, TypeText}

// ParseColumnType accepts the canonical names plus a few common aliases.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "int64":
		return TypeInt, nil
	case "float", "float64", "double", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "timestamp", "datetime", "time", "date":
		return TypeTimestamp, nil
	case "text", "string", "str":
		return TypeText, nil
	default:
		return "", fmt.Errorf("unknown column type: %q", s)
	}
}

// Column is a named, typed vector of cell values.
//
// Cell values are nil (null), int64, float64, bool, time.Time or string.
type Column struct {
	Name   string
	Type   ColumnType
	Values []any
}

func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Type: c.Type, Values: make([]any, len(c.Values))}
	copy(out.Values, c.Values)
	return out
}

// Table is an ordered set of columns sharing one row count.
type Table struct {
	Columns []*Column
}

func NewTable(cols ...*Column) *Table {
	return &Table{Columns: cols}
}

// BlankTable returns the synthetic 1x1 table used when a load yields nothing.
func BlankTable() *Table {
	t := &Table{}
	t.EnsureNonEmpty()
	return t
}

func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

func (t *Table) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// Column returns the column with the given name and its index, or (nil, -1).
func (t *Table) Column(name string) (*Column, int) {
	for i, c := range t.Columns {
		if c.Name == name {
			return c, i
		}
	}
	return nil, -1
}

func (t *Table) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < t.NumRows() && col < t.NumCols()
}

func (t *Table) Cell(row, col int) any {
	if !t.InBounds(row, col) {
		return nil
	}
	return t.Columns[col].Values[row]
}

func (t *Table) SetCell(row, col int, v any) {
	if !t.InBounds(row, col) {
		return
	}
	t.Columns[col].Values[row] = v
}

// Row returns a copy of the values at row r.
func (t *Table) Row(r int) []any {
	out := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		if r >= 0 && r < len(c.Values) {
			out[i] = c.Values[r]
		}
	}
	return out
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// InsertRow inserts a null row before index at (at == NumRows appends).
func (t *Table) InsertRow(at int) {
	for _, c := range t.Columns {
		c.Values = append(c.Values, nil)
		copy(c.Values[at+1:], c.Values[at:])
		c.Values[at] = nil
	}
}

func (t *Table) DeleteRow(at int) {
	for _, c := range t.Columns {
		c.Values = append(c.Values[:at], c.Values[at+1:]...)
	}
}

// InsertColumn inserts col before index at, padding or trimming it to the row count.
func (t *Table) InsertColumn(at int, col *Column) {
	n := t.NumRows()
	if len(t.Columns) == 0 {
		n = len(col.Values)
	}
	switch {
	case len(col.Values) < n:
		col.Values = append(col.Values, make([]any, n-len(col.Values))...)
	case len(col.Values) > n:
		col.Values = col.Values[:n]
	}
	t.Columns = append(t.Columns, nil)
	copy(t.Columns[at+1:], t.Columns[at:])
	t.Columns[at] = col
}

func (t *Table) DeleteColumn(at int) {
	t.Columns = append(t.Columns[:at], t.Columns[at+1:]...)
}

// UniqueColumnName returns base if unused, otherwise base2, base3, ...
func (t *Table) UniqueColumnName(base string) string {
	if base == "" {
		base = "column"
	}
	if c, _ := t.Column(base); c == nil {
		return base
	}
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s%d", base, i)
		if c, _ := t.Column(name); c == nil {
			return name
		}
	}
}

// EnsureNonEmpty inserts a blank text column and/or a blank row so the table has at
// least one of each. It reports whether anything was added.
func (t *Table) EnsureNonEmpty() bool {
	changed := false
	if len(t.Columns) == 0 {
		t.Columns = []*Column{{Name: "column1", Type: TypeText}}
		changed = true
	}
	if t.NumRows() == 0 {
		for _, c := range t.Columns {
			c.Values = []any{nil}
		}
		changed = true
	}
	return changed
}

// Equal compares names, types and values. Timestamps compare by instant and floats
// by bit pattern, so NaN equals NaN.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) {
		return false
	}
	for i, c := range t.Columns {
		oc := o.Columns[i]
		if c.Name != oc.Name || c.Type != oc.Type || len(c.Values) != len(oc.Values) {
			return false
		}
		for r := range c.Values {
			if !ValuesEqual(c.Values[r], oc.Values[r]) {
				return false
			}
		}
	}
	return true
}

func ValuesEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case float64:
		bv, ok := b.(float64)
		return ok && math.Float64bits(av) == math.Float64bits(bv)
	default:
		return a == b
	}
}

// InferType picks the narrowest column type that holds every non-null value.
func InferType(values []any) ColumnType {
	var sawInt, sawFloat, sawBool, sawTime, sawText bool
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64:
			sawInt = true
		case float64:
			sawFloat = true
		case bool:
			sawBool = true
		case time.Time:
			sawTime = true
		default:
			sawText = true
		}
	}
	switch {
	case sawText:
		return TypeText
	case sawTime && !sawInt && !sawFloat && !sawBool:
		return TypeTimestamp
	case sawBool && !sawInt && !sawFloat && !sawTime:
		return TypeBool
	case sawFloat && !sawBool && !sawTime:
		return TypeFloat
	case sawInt && !sawBool && !sawTime:
		return TypeInt
	default:
		return TypeText
	}
}

// Rect is an inclusive cell rectangle.
type Rect struct {
	Top, Left, Bottom, Right int
}

// RectFrom builds a normalised rectangle from two corners.
func RectFrom(r1, c1, r2, c2 int) Rect {
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	return Rect{Top: r1, Left: c1, Bottom: r2, Right: c2}
}

func (r Rect) Rows() int { return r.Bottom - r.Top + 1 }
func (r Rect) Cols() int { return r.Right - r.Left + 1 }

func (r Rect) Contains(row, col int) bool {
	return row >= r.Top && row <= r.Bottom && col >= r.Left && col <= r.Right
}

// Clamp trims the rectangle to a rows x cols table.
func (r Rect) Clamp(rows, cols int) Rect {
	r.Top = clampInt(r.Top, 0, rows-1)
	r.Bottom = clampInt(r.Bottom, 0, rows-1)
	r.Left = clampInt(r.Left, 0, cols-1)
	r.Right = clampInt(r.Right, 0, cols-1)
	return r
}

func clampInt(v, lo, hi int) int {
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
