package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"tabedit/internal/extensions"
	"tabedit/internal/model"
)

func abTable() *model.Table {
	return model.NewTable(
		&model.Column{Name: "a", Type: model.TypeInt, Values: []any{int64(1), int64(2), int64(3)}},
		&model.Column{Name: "b", Type: model.TypeInt, Values: []any{int64(10), int64(20), nil}},
	)
}

func run(t *testing.T, code string, opts Options) Result {
	t.Helper()
	return Run(context.Background(), code, abTable(), opts)
}

func TestColumnAssignmentCommitsImplicitly(t *testing.T) {
	res := run(t, "df['c'] = df['a'] + df['b']", Options{})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	assert.Equal(t, ReasonImplicit, res.Reason)
	assert.Equal(t, []string{"a", "b", "c"}, res.Table.ColumnNames())
	c, _ := res.Table.Column("c")
	assert.Equal(t, model.TypeInt, c.Type)
	assert.Equal(t, []any{int64(11), int64(22), nil}, c.Values)
}

func TestTrailingAssignmentDisplaysWithoutCommit(t *testing.T) {
	res := run(t, "result = 1 + 1", Options{})
	require.NoError(t, res.Err)
	assert.False(t, res.Committed)
	assert.Nil(t, res.Table)
	assert.Equal(t, "2", res.Display)
}

func TestTrailingExpressionIsDisplayedOnly(t *testing.T) {
	res := run(t, "df.shape", Options{})
	require.NoError(t, res.Err)
	assert.False(t, res.Committed)
	assert.Equal(t, "(3, 2)", res.Display)
}

func TestInputTableIsNotMutated(t *testing.T) {
	in := abTable()
	res := Run(context.Background(), "df.set(0, 'a', 99)\ndf.delete_row(2)", in, Options{})
	require.True(t, res.Committed)
	assert.True(t, in.Equal(abTable()))
	assert.Equal(t, int64(99), res.Table.Cell(0, 0))
	assert.Equal(t, 2, res.Table.NumRows())
}

func TestExplicitTupleCommitsThatTable(t *testing.T) {
	res := run(t, "t = df.copy()\nt.set(0, 'a', 7)\n(t, True)", Options{})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	assert.Equal(t, ReasonExplicitTuple, res.Reason)
	assert.Equal(t, int64(7), res.Table.Cell(0, 0))
}

func TestExplicitTupleFalseVetoes(t *testing.T) {
	res := run(t, "df['a'] = df['a'] * 2\n(df, False)", Options{AlwaysCommit: true})
	require.NoError(t, res.Err)
	assert.False(t, res.Committed)
	assert.Equal(t, ReasonVetoed, res.Reason)
}

func bumpRegistry() *extensions.Registry {
	reg := extensions.NewRegistry()
	reg.Register("bump", "test", starlark.NewBuiltin("bump", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
		tbl := args[0].(*Table)
		tbl.Model().SetCell(0, 0, int64(100))
		return starlark.None, nil
	}))
	return reg
}

func TestExtensionCallSuppressesImplicitCommit(t *testing.T) {
	res := run(t, "df.ext.bump()", Options{Extensions: bumpRegistry()})
	require.NoError(t, res.Err)
	assert.True(t, res.ExtensionCalled)
	assert.False(t, res.Committed)
	assert.Equal(t, ReasonNone, res.Reason)
}

func TestCommitFlagAfterExtensionCall(t *testing.T) {
	res := run(t, "df.ext.bump()\ncommit = True", Options{Extensions: bumpRegistry()})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	assert.Equal(t, ReasonCommitFlag, res.Reason)
	assert.Equal(t, int64(100), res.Table.Cell(0, 0))
}

func TestAlwaysCommitIsTheLastRule(t *testing.T) {
	res := run(t, "df.ext.bump()", Options{Extensions: bumpRegistry(), AlwaysCommit: true})
	require.True(t, res.Committed)
	assert.Equal(t, ReasonAlways, res.Reason)
}

func TestUnknownExtensionIsARuntimeError(t *testing.T) {
	res := run(t, "df.ext.nope()", Options{Extensions: bumpRegistry()})
	require.Error(t, res.Err)
	assert.False(t, res.Committed)
	assert.Contains(t, res.Stderr[len(res.Stderr)-1], "extension not found: nope")
}

func TestPrintAndEprintAreSeparated(t *testing.T) {
	res := run(t, "print('hello')\neprint('warn', 1)", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"hello"}, res.Stdout)
	assert.Equal(t, []string{"warn 1"}, res.Stderr)
}

func TestRuntimeErrorReportsBacktraceAndKeepsStdout(t *testing.T) {
	res := run(t, "print('before')\ndf['a'] = df['a'] * 2\nx = 1 // 0", Options{})
	var ee *ExecutionError
	require.True(t, errors.As(res.Err, &ee))
	assert.Equal(t, "runtime", ee.Stage)
	assert.False(t, res.Committed)
	assert.Nil(t, res.Table)
	assert.Equal(t, []string{"before"}, res.Stdout)
	require.NotEmpty(t, res.Stderr)
	assert.Contains(t, res.Stderr[len(res.Stderr)-1], "division by zero")
}

func TestParseError(t *testing.T) {
	res := run(t, "df[", Options{})
	var ee *ExecutionError
	require.True(t, errors.As(res.Err, &ee))
	assert.Equal(t, "parse", ee.Stage)
	assert.Len(t, res.Stderr, 1)
}

func TestStepLimitStopsRunawayCode(t *testing.T) {
	res := run(t, "while True:\n    pass", Options{MaxSteps: 10_000})
	require.Error(t, res.Err)
	assert.False(t, res.Committed)
}

func TestCancelledContextStopsExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Run(ctx, "while True:\n    pass", abTable(), Options{})
	require.Error(t, res.Err)
	assert.False(t, res.Committed)
}

func TestFilterAndSortReassignDf(t *testing.T) {
	res := run(t, "df = df.filter(lambda r: r['a'] > 1).sort_by('a', reverse=True)", Options{})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	a, _ := res.Table.Column("a")
	assert.Equal(t, []any{int64(3), int64(2)}, a.Values)
}

func TestNonTableDfDoesNotCommit(t *testing.T) {
	res := run(t, "df = 5", Options{})
	require.NoError(t, res.Err)
	assert.False(t, res.Committed)
	assert.Equal(t, "5", res.Display)
}

func TestNumericHelpers(t *testing.T) {
	res := run(t, "np.round(np.mean(df['a']) / 3, 2)", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "0.67", res.Display)

	res = run(t, "df['b'].sum()", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "30", res.Display)

	res = run(t, "np.arange(3)", Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, "[0, 1, 2]", res.Display)
}

func TestScalarBroadcastAndAppendRow(t *testing.T) {
	res := run(t, "df['flag'] = True\ndf.append_row({'a': '4'})", Options{})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	assert.Equal(t, 4, res.Table.NumRows())
	flag, _ := res.Table.Column("flag")
	assert.Equal(t, model.TypeBool, flag.Type)
	assert.Equal(t, int64(4), res.Table.Cell(3, 0))
	assert.Nil(t, res.Table.Cell(3, 2))
}

func TestLengthMismatchIsAnError(t *testing.T) {
	res := run(t, "df['c'] = [1, 2]", Options{})
	require.Error(t, res.Err)
	assert.False(t, res.Committed)
}

func TestLoadFromModuleDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "util"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util", "mathx.star"), []byte("def double(x):\n    return x * 2\n"), 0o644))

	code := "import util.mathx as mx\nfrom util.mathx import double\ndf['a'] = df['a'].map(mx.double)\ndf['b'] = df['b'].map(lambda v: double(v) if v != None else None)"
	res := run(t, code, Options{AllowLoad: true, ModuleDir: dir})
	require.NoError(t, res.Err)
	require.True(t, res.Committed)
	a, _ := res.Table.Column("a")
	assert.Equal(t, []any{int64(2), int64(4), int64(6)}, a.Values)

	res = run(t, "import missing", Options{AllowLoad: true, ModuleDir: dir})
	require.Error(t, res.Err)

	res = run(t, "load('../escape', 'x')", Options{AllowLoad: true, ModuleDir: dir})
	require.Error(t, res.Err)
}

func TestLoadDisabledLocally(t *testing.T) {
	res := run(t, "import json2", Options{})
	require.Error(t, res.Err)
}
