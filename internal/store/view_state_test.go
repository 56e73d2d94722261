package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabedit/internal/document"
	"tabedit/internal/model"
)

func twoSheetDoc() *document.Document {
	col := func() *model.Column {
		return &model.Column{Name: "a", Type: model.TypeInt, Values: []any{int64(1), int64(2), int64(3)}}
	}
	return document.FromSheets(
		document.NewSheet("first", model.NewTable(col())),
		document.NewSheet("second", model.NewTable(col())),
	)
}

func TestViewStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABEDIT_CONFIG_DIR", dir)

	st, err := LoadViewState()
	require.NoError(t, err)
	assert.Empty(t, st.Files)

	doc := twoSheetDoc()
	doc.NextSheet()
	doc.SetCursor(2, 0)
	path := filepath.Join(dir, "data.tcol")
	st.Remember(path, doc, time.Unix(100, 0))
	require.NoError(t, SaveViewState(st))

	loaded, err := LoadViewState()
	require.NoError(t, err)
	fresh := twoSheetDoc()
	require.True(t, loaded.Restore(path, fresh))
	assert.Equal(t, "second", fresh.Active().Name)
	assert.Equal(t, document.Cursor{Row: 2, Col: 0}, fresh.Cursor())

	assert.False(t, loaded.Restore(filepath.Join(dir, "other.csv"), fresh))
}

func TestViewStateRestoreClampsStalePositions(t *testing.T) {
	st := &ViewState{Files: map[string]FileView{
		viewKey("x.csv"): {Sheet: "gone", Row: 50, Col: 9},
	}}
	doc := twoSheetDoc()
	require.True(t, st.Restore("x.csv", doc))
	assert.Equal(t, "first", doc.Active().Name)
	assert.Equal(t, document.Cursor{Row: 2, Col: 0}, doc.Cursor())
}

func TestViewStateCorruptFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABEDIT_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, viewStateFileName), []byte("{nope"), 0o644))
	st, err := LoadViewState()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Version)
	assert.Empty(t, st.Files)
}

func TestViewStatePruneKeepsNewest(t *testing.T) {
	st := &ViewState{Files: map[string]FileView{}}
	for i := 0; i < 5; i++ {
		st.Files[fmt.Sprintf("f%d", i)] = FileView{SavedAt: time.Unix(int64(i), 0)}
	}
	st.prune(2)
	assert.Len(t, st.Files, 2)
	assert.Contains(t, st.Files, "f4")
	assert.Contains(t, st.Files, "f3")
}
