package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabedit/internal/model"
)

func TestTableStructuralMethods(t *testing.T) {
	code := `
df.rename_column('a', 'id')
df.drop_column('b')
df.add_column('label', ['x', 'y', 'z'])
df.insert_row(0, [0, 'w'])
`
	res := run(t, code, Options{})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	assert.Equal(t, []string{"id", "label"}, res.Table.ColumnNames())
	assert.Equal(t, 4, res.Table.NumRows())
	assert.Equal(t, []any{int64(0), "w"}, res.Table.Row(0))
}

func TestTableIterationAndRows(t *testing.T) {
	res := run(t, "total = 0\nfor r in df:\n    total += r['a']\ntotal", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "6", res.Display)

	res = run(t, "df[-1]['b']", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "", res.Display)

	res = run(t, "len(df.head(2)), len(df.tail(10))", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "(2, 3)", res.Display)
}

func TestTableErrors(t *testing.T) {
	for _, code := range []string{
		"df['missing']",
		"df.get(5, 'a')",
		"df.add_column('a')",
		"df.rename_column('a', 'b')",
		"df.set(0, 'a', 'not a number')",
		"df.insert_row(0, [1])",
	} {
		res := run(t, code, Options{})
		assert.Error(t, res.Err, code)
		assert.False(t, res.Committed, code)
	}
}

func TestSeriesArithmetic(t *testing.T) {
	res := run(t, "(10 - df['a']).to_list()", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "[9, 8, 7]", res.Display)

	res = run(t, "df['b'].fillna(0).mean()", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "10.0", res.Display)

	res = run(t, "df['a'] / 2", Options{})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Display, "0.5")
}

func TestRenderTable(t *testing.T) {
	tbl := model.NewTable(&model.Column{Name: "name", Type: model.TypeText, Values: []any{"ada", nil}})
	out := RenderTable(tbl)
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "ada")
	assert.NotContains(t, out, "rows x")

	big := model.NewTable(&model.Column{Name: "n", Type: model.TypeInt, Values: make([]any, 25)})
	assert.Contains(t, renderTable(big, 10), "[25 rows x 1 columns]")
}
