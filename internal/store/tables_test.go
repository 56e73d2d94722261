package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabedit/internal/document"
	"tabedit/internal/model"
)

func mixedTable() *model.Table {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("", 2*3600))
	return model.NewTable(
		&model.Column{Name: "id", Type: model.TypeInt, Values: []any{int64(1), int64(-2), nil}},
		&model.Column{Name: "score", Type: model.TypeFloat, Values: []any{1.5, math.NaN(), nil}},
		&model.Column{Name: "ok", Type: model.TypeBool, Values: []any{true, false, nil}},
		&model.Column{Name: "at", Type: model.TypeTimestamp, Values: []any{ts, nil, ts.Add(time.Hour)}},
		&model.Column{Name: "note", Type: model.TypeText, Values: []any{"a,b", "", nil}},
	)
}

func TestReadCSVInfersTypes(t *testing.T) {
	in := "\ufeffid,price,flag,when,name,\n1,2.5,yes,2024-01-02,ann,x\n2,,no,,\"b, c\"\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price", "flag", "when", "name", "column6"}, tbl.ColumnNames())
	types := []model.ColumnType{}
	for _, c := range tbl.Columns {
		types = append(types, c.Type)
	}
	assert.Equal(t, []model.ColumnType{model.TypeInt, model.TypeFloat, model.TypeBool, model.TypeTimestamp, model.TypeText, model.TypeText}, types)
	assert.Equal(t, 2, tbl.NumRows())
	assert.Nil(t, tbl.Cell(1, 1))
	assert.Equal(t, "b, c", tbl.Cell(1, 4))
	assert.Nil(t, tbl.Cell(1, 5))
}

func TestReadCSVDuplicateHeaders(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,a,a\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a2", "a3"}, tbl.ColumnNames())
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := model.NewTable(
		&model.Column{Name: "n", Type: model.TypeInt, Values: []any{int64(3), nil}},
		&model.Column{Name: "s", Type: model.TypeText, Values: []any{"x\ny", "plain"}},
	)
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, tbl))
	back, err := ReadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.True(t, tbl.Equal(back))
}

func TestColumnarRoundTripMultiSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.tcol")
	sheets := []NamedTable{
		{Name: "main", Table: mixedTable()},
		{Name: "empty", Table: model.BlankTable()},
	}
	require.NoError(t, writeColumnarFile(path, sheets))

	format, err := SniffFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatColumnar, format)

	back, err := readColumnarFile(path)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "main", back[0].Name)
	assert.True(t, mixedTable().Equal(back[0].Table))
	assert.True(t, model.BlankTable().Equal(back[1].Table))
}

func TestColumnarRejectsMismatchedValues(t *testing.T) {
	bad := model.NewTable(&model.Column{Name: "n", Type: model.TypeInt, Values: []any{"oops"}})
	err := EncodeColumnar(&strings.Builder{}, []NamedTable{{Name: "x", Table: bad}})
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
}

func TestColumnarFallsBackToSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "in.table")
	bad := model.NewTable(
		&model.Column{Name: "n", Type: model.TypeInt, Values: []any{"7", nil}},
	)
	format, err := WriteTableFileWithFallback(ctx, path, bad)
	require.NoError(t, err)
	assert.Equal(t, FormatSQLite, format)

	back, err := ReadTableFile(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7), nil}, back.Columns[0].Values)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "t.db")
	require.NoError(t, WriteTableFile(ctx, path, FormatSQLite, mixedTable()))

	format, err := SniffFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatSQLite, format)

	back, err := ReadTableFile(ctx, path, FormatColumnar)
	require.NoError(t, err)
	assert.True(t, mixedTable().Equal(back))
}

func TestLoadOrCreate(t *testing.T) {
	dir := t.TempDir()

	doc, created, err := LoadOrCreate(filepath.Join(dir, "new.csv"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, doc.Table().NumRows())
	assert.Equal(t, 1, doc.Table().NumCols())

	_, _, err = LoadOrCreate(filepath.Join(dir, "notes.txt"))
	var ue *UnsupportedFormatError
	require.True(t, errors.As(err, &ue))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	doc, created, err = LoadOrCreate(empty)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, doc.Table().NumRows())
}

func TestSaveAndLoadTcolKeepsSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.tcol")
	doc := document.New(mixedTable())
	_, err := doc.AddSheet("second", model.BlankTable())
	require.NoError(t, err)

	require.NoError(t, Save(path, doc))
	assert.False(t, doc.Dirty())

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{document.DefaultSheetName, "second"}, back.SheetNames())
	assert.True(t, mixedTable().Equal(back.Sheets()[0].Table))
}

// columnarStream frames payload as a .tcol file.
func columnarStream(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(columnarMagic)
	buf.WriteByte(columnarVersion)
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write(payload)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func TestDecodeColumnarRejectsOversizedHeaders(t *testing.T) {
	sheet := func(rows, cols uint64) []byte {
		p := binary.AppendUvarint(nil, 1)
		p = binary.AppendUvarint(p, 1)
		p = append(p, 'x')
		p = binary.AppendUvarint(p, rows)
		return binary.AppendUvarint(p, cols)
	}
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"rows", sheet(1<<63, 1), "row count"},
		{"columns", sheet(1, 1<<40), "column count"},
		{"sheets", binary.AppendUvarint(nil, 1<<50), "sheet count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeColumnar(bytes.NewReader(columnarStream(t, tt.payload)))
			var fe *FormatError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
