package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	return NewTable(
		&Column{Name: "a", Type: TypeInt, Values: []any{int64(1), int64(2)}},
		&Column{Name: "b", Type: TypeText, Values: []any{"x", nil}},
	)
}

func TestInsertAndDeleteRow(t *testing.T) {
	tbl := sample()
	tbl.InsertRow(0)
	require.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []any{nil, int64(1), int64(2)}, tbl.Columns[0].Values)

	tbl.InsertRow(3)
	assert.Equal(t, []any{nil, int64(1), int64(2), nil}, tbl.Columns[0].Values)

	tbl.DeleteRow(1)
	assert.Equal(t, []any{nil, int64(2), nil}, tbl.Columns[0].Values)
	assert.Equal(t, []any{nil, nil, nil}, tbl.Columns[1].Values)
}

func TestInsertColumnPadsToRowCount(t *testing.T) {
	tbl := sample()
	tbl.InsertColumn(1, &Column{Name: "c", Type: TypeFloat})
	require.Equal(t, []string{"a", "c", "b"}, tbl.ColumnNames())
	assert.Len(t, tbl.Columns[1].Values, 2)
}

func TestCloneIsDeep(t *testing.T) {
	tbl := sample()
	cp := tbl.Clone()
	cp.SetCell(0, 0, int64(99))
	assert.Equal(t, int64(1), tbl.Cell(0, 0))
	assert.False(t, tbl.Equal(cp))
}

func TestEnsureNonEmpty(t *testing.T) {
	tbl := &Table{}
	require.True(t, tbl.EnsureNonEmpty())
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, 1, tbl.NumCols())
	assert.False(t, tbl.EnsureNonEmpty())

	noRows := NewTable(&Column{Name: "x", Type: TypeInt})
	require.True(t, noRows.EnsureNonEmpty())
	assert.Equal(t, []any{nil}, noRows.Columns[0].Values)
}

func TestEqualTreatsInstantsAndNaN(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := NewTable(&Column{Name: "t", Type: TypeTimestamp, Values: []any{at}}, &Column{Name: "f", Type: TypeFloat, Values: []any{math.NaN()}})
	b := NewTable(&Column{Name: "t", Type: TypeTimestamp, Values: []any{at.In(time.FixedZone("x", 3600))}}, &Column{Name: "f", Type: TypeFloat, Values: []any{math.NaN()}})
	assert.True(t, a.Equal(b))
}

func TestInferType(t *testing.T) {
	assert.Equal(t, TypeInt, InferType([]any{int64(1), nil}))
	assert.Equal(t, TypeFloat, InferType([]any{int64(1), 2.5}))
	assert.Equal(t, TypeBool, InferType([]any{true}))
	assert.Equal(t, TypeTimestamp, InferType([]any{time.Now()}))
	assert.Equal(t, TypeText, InferType([]any{"x", int64(1)}))
	assert.Equal(t, TypeText, InferType([]any{nil}))
}

func TestUniqueColumnName(t *testing.T) {
	tbl := sample()
	assert.Equal(t, "c", tbl.UniqueColumnName("c"))
	assert.Equal(t, "a2", tbl.UniqueColumnName("a"))
}

func TestRect(t *testing.T) {
	r := RectFrom(3, 4, 1, 2)
	assert.Equal(t, Rect{Top: 1, Left: 2, Bottom: 3, Right: 4}, r)
	assert.Equal(t, 3, r.Rows())
	assert.True(t, r.Contains(2, 3))
	assert.Equal(t, Rect{Top: 1, Left: 2, Bottom: 1, Right: 2}, r.Clamp(2, 3))
}

func TestParseColumnType(t *testing.T) {
	ct, err := ParseColumnType(" Integer ")
	require.NoError(t, err)
	assert.Equal(t, TypeInt, ct)
	_, err = ParseColumnType("blob")
	assert.Error(t, err)
}
