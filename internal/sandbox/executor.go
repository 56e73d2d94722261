// Package sandbox executes console code against a copy of the active table.
//
// Code is Starlark with a small pandas/numpy-flavoured surface: the table is bound
// to df and only its methods can change table data. The live table is never touched;
// Run returns a candidate table and a commit decision for the caller to apply.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"tabedit/internal/extensions"
	"tabedit/internal/model"
)

func init() {
	resolve.AllowSet = true
	resolve.AllowGlobalReassign = true
	resolve.AllowRecursion = true
}

// Names bound in every execution.
const (
	TableVar  = "df"
	CommitVar = "commit"
)

// DefaultMaxSteps bounds a run when Options.MaxSteps is zero.
const DefaultMaxSteps = 50_000_000

// Options configures one execution.
type Options struct {
	// AlwaysCommit commits df whenever no earlier rule decided.
	AlwaysCommit bool
	Extensions   *extensions.Registry
	// AllowLoad enables load() from ModuleDir.
	AllowLoad bool
	ModuleDir string
	MaxSteps  uint64
}

// Result is the outcome of Run. Table is set only when Committed.
type Result struct {
	Stdout          []string
	Stderr          []string
	Display         string
	Table           *model.Table
	Committed       bool
	Reason          string
	ExtensionCalled bool
	Err             error
}

// ExecutionError wraps a parse or runtime failure.
type ExecutionError struct {
	Stage string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Commit reasons.
const (
	ReasonExplicitTuple = "explicit result tuple"
	ReasonVetoed        = "vetoed by result tuple"
	ReasonCommitFlag    = "commit flag"
	ReasonImplicit      = "table changed"
	ReasonAlways        = "always-commit policy"
	ReasonError         = "execution failed"
	ReasonNone          = "no change"
)

// LoadExtensions loads the extension registry with the executor's predeclared names.
func LoadExtensions(dir string) (*extensions.Registry, []error) {
	return extensions.LoadDir(dir, Predeclared())
}

type lineWriter struct{ lines *[]string }

func (w lineWriter) Write(p []byte) (int, error) {
	*w.lines = append(*w.lines, strings.Split(strings.TrimRight(string(p), "\n"), "\n")...)
	return len(p), nil
}

// Run executes code against a clone of table.
func Run(ctx context.Context, code string, table *model.Table, opts Options) Result {
	var res Result
	if table == nil {
		table = model.BlankTable()
	}
	input := table
	df := NewTable(table.Clone())

	st := &execState{registry: opts.Extensions, stderr: lineWriter{&res.Stderr}}
	thread := &starlark.Thread{
		Name: "console",
		Print: func(_ *starlark.Thread, msg string) {
			res.Stdout = append(res.Stdout, strings.Split(msg, "\n")...)
		},
	}
	thread.SetLocal(stateKey, st)
	steps := opts.MaxSteps
	if steps == 0 {
		steps = DefaultMaxSteps
	}
	thread.SetMaxExecutionSteps(steps)

	predeclared := Predeclared()
	predeclared[TableVar] = df
	predeclared[CommitVar] = starlark.False
	if opts.AllowLoad {
		thread.Load = newModuleLoader(opts.ModuleDir, predeclared).Load
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	src, _ := RewriteImports(code)
	f, err := syntax.Parse("<console>", src, 0)
	if err != nil {
		return res.fail("parse", err)
	}

	var trailing syntax.Expr
	displayName := ""
	if n := len(f.Stmts); n > 0 {
		switch last := f.Stmts[n-1].(type) {
		case *syntax.ExprStmt:
			trailing = last.X
			f.Stmts = f.Stmts[:n-1]
		case *syntax.AssignStmt:
			if id, ok := last.LHS.(*syntax.Ident); ok && last.Op == syntax.EQ {
				displayName = id.Name
			}
		}
	}

	prog, err := starlark.FileProgram(f, predeclared.Has)
	if err != nil {
		return res.fail("parse", err)
	}
	globals, err := prog.Init(thread, predeclared)
	if err != nil {
		return res.fail("runtime", err)
	}

	env := make(starlark.StringDict, len(predeclared)+len(globals))
	for k, v := range predeclared {
		env[k] = v
	}
	for k, v := range globals {
		env[k] = v
	}

	var shown starlark.Value
	if trailing != nil {
		shown, err = starlark.EvalExpr(thread, trailing, env)
		if err != nil {
			return res.fail("runtime", err)
		}
	} else if displayName != "" {
		shown = env[displayName]
	}
	if shown != nil && shown != starlark.None {
		res.Display = shown.String()
	}
	res.ExtensionCalled = st.extCalled

	final, _ := env[TableVar].(*Table)
	res.decide(shown, env[CommitVar], final, input, opts.AlwaysCommit)
	slog.Debug("sandbox run", "committed", res.Committed, "reason", res.Reason, "ext", res.ExtensionCalled)
	return res
}

func (r *Result) decide(shown, flag starlark.Value, final *Table, input *model.Table, always bool) {
	if tup, ok := shown.(starlark.Tuple); ok && len(tup) == 2 {
		if t, ok := tup[0].(*Table); ok {
			if b, ok := tup[1].(starlark.Bool); ok {
				if b {
					r.commit(t.t, ReasonExplicitTuple)
				} else {
					r.Reason = ReasonVetoed
				}
				return
			}
		}
	}
	if final == nil {
		if always {
			r.Stderr = append(r.Stderr, fmt.Sprintf("%s is not a table; nothing committed", TableVar))
		}
		r.Reason = ReasonNone
		return
	}
	if flag != nil && bool(flag.Truth()) {
		r.commit(final.t, ReasonCommitFlag)
		return
	}
	if !r.ExtensionCalled && !final.t.Equal(input) {
		r.commit(final.t, ReasonImplicit)
		return
	}
	if always {
		r.commit(final.t, ReasonAlways)
		return
	}
	r.Reason = ReasonNone
}

func (r *Result) commit(t *model.Table, reason string) {
	r.Table = t
	r.Committed = true
	r.Reason = reason
}

func (r Result) fail(stage string, err error) Result {
	r.Err = &ExecutionError{Stage: stage, Err: err}
	r.Reason = ReasonError
	r.Table = nil
	r.Committed = false
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		r.Stderr = append(r.Stderr, strings.Split(evalErr.Backtrace(), "\n")...)
	} else {
		r.Stderr = append(r.Stderr, err.Error())
	}
	slog.Debug("sandbox run failed", "stage", stage, "err", err)
	return r
}
