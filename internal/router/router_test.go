package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabedit/internal/bridge"
	"tabedit/internal/model"
	"tabedit/internal/sandbox"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		route  Route
		reason string
		parsed bool
	}{
		{"plain", "df['a'] = df['a'] * 2", Local, ReasonDefault, true},
		{"empty", "", Local, ReasonDefault, true},
		{"python import", "import helpers\ndf['a'] = df['a'].map(helpers.inc)", Remote, ReasonImport, true},
		{"from import", "from helpers import inc as plus", Remote, ReasonImport, true},
		{"load", `load("helpers", "inc")`, Remote, ReasonImport, true},
		{"late import", "x = 1\n\nimport stats", Remote, ReasonImport, true},
		{"extension", "df.ext.normalize('a')", Remote, ReasonExtension, true},
		{"nested extension", "def f():\n    return df.ext.top(3)\nf()", Remote, ReasonExtension, true},
		{"import wins over ext", "import m\ndf.ext.go()", Remote, ReasonImport, true},
		{"ext in a string", "s = 'df.ext.top'", Local, ReasonDefault, true},
		{"extension named like ext", "df.extra = 1", Local, ReasonDefault, true},
		{"unparsable", "df[", Local, ReasonDefault, false},
		{"unparsable import", "import m\ndf[", Remote, ReasonImport, false},
		{"unparsable ext", "df.ext.x(\n", Remote, ReasonExtension, false},
		{"nested import", "if True:\n    import math\n", Remote, ReasonImport, true},
		{"nested load", "def f():\n    load('m', 'g')\n", Remote, ReasonImport, true},
		{"import with comment", "import math  # helpers\ndf['x'] = 1", Remote, ReasonImport, true},
		{"import with semicolon", "import math;\ndf['x'] = 1", Remote, ReasonImport, true},
		{"star import", "from m import *\ndf['x'] = 1", Remote, ReasonImport, false},
		{"import in a docstring", "s = \"\"\"\nimport os\n\"\"\"", Local, ReasonDefault, true},
		{"getattr ext", "e = getattr(df, 'ext')\ne.hit()", Remote, ReasonExtension, true},
		{"getattr other", "n = getattr(df, 'shape')", Local, ReasonDefault, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.code)
			assert.Equal(t, tt.route, c.Route)
			assert.Equal(t, tt.reason, c.Reason)
			assert.Equal(t, tt.parsed, c.Parsed)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	code := "import a\nimport b\ndf.ext.c()"
	first := Classify(code)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(code))
	}
}

type fakeRunner struct {
	calls []string
	res   sandbox.Result
	err   error
}

func (f *fakeRunner) Run(_ context.Context, code string, _ *model.Table) (sandbox.Result, error) {
	f.calls = append(f.calls, code)
	return f.res, f.err
}

func table() *model.Table {
	return model.NewTable(&model.Column{Name: "a", Type: model.TypeInt, Values: []any{int64(1)}})
}

func TestExecuteDispatches(t *testing.T) {
	remote := &fakeRunner{res: sandbox.Result{Stdout: []string{"from worker"}}}
	r := &Router{Remote: remote}

	res, c := r.Execute(context.Background(), "df['a'] = df['a'] + 1", table())
	assert.Equal(t, Local, c.Route)
	assert.Empty(t, remote.calls)
	require.NoError(t, res.Err)
	assert.True(t, res.Committed)

	res, c = r.Execute(context.Background(), "df.ext.anything()", table())
	assert.Equal(t, Remote, c.Route)
	assert.Equal(t, []string{"df.ext.anything()"}, remote.calls)
	assert.Equal(t, []string{"from worker"}, res.Stdout)
}

func TestExecuteBridgeFailureIsOneLine(t *testing.T) {
	remote := &fakeRunner{err: &bridge.BridgeError{Stage: bridge.StageTimeout, Err: errors.New("worker exceeded 1s")}}
	r := &Router{Remote: remote}

	res, _ := r.Execute(context.Background(), "import m", table())
	assert.False(t, res.Committed)
	assert.Nil(t, res.Table)
	require.Len(t, res.Stderr, 1)
	assert.Equal(t, "remote execution failed (timeout): worker exceeded 1s", res.Stderr[0])
	assert.Equal(t, sandbox.ReasonError, res.Reason)
}

func TestLocalRunNeverReachesExtensions(t *testing.T) {
	r := &Router{Remote: &fakeRunner{}}
	// A computed attribute name is not visible to Classify.
	res, c := r.Execute(context.Background(), "n = 'e' + 'xt'\ne = getattr(df, n)\ne.hit()", table())
	assert.Equal(t, Local, c.Route)
	require.Error(t, res.Err)
	assert.False(t, res.ExtensionCalled)
	assert.Contains(t, res.Stderr[len(res.Stderr)-1], "extension not found: hit")
}

func TestExecuteWithoutRemoteRunsLocally(t *testing.T) {
	r := &Router{}
	res, c := r.Execute(context.Background(), "df.ext.missing()", table())
	assert.Equal(t, Remote, c.Route)
	require.Error(t, res.Err)
	assert.False(t, res.Committed)
}
