// Package router decides where console code runs and dispatches it.
//
// Code that imports modules or calls table extensions runs in an isolated worker
// process; everything else runs in the in-process sandbox. Classification only parses
// the buffer, it never executes it.
package router

import (
	"context"
	"log/slog"
	"regexp"

	"go.starlark.net/syntax"

	"tabedit/internal/bridge"
	"tabedit/internal/model"
	"tabedit/internal/sandbox"
)

// Route is where a buffer executes.
type Route int

const (
	Local Route = iota
	Remote
)

func (r Route) String() string {
	if r == Remote {
		return "remote"
	}
	return "local"
}

// Classification carries the route and the rule that chose it.
type Classification struct {
	Route  Route
	Reason string
	// Parsed is false when the buffer did not parse and textual detection was used.
	Parsed bool
}

const (
	ReasonImport    = "imports a module"
	ReasonExtension = "calls a table extension"
	ReasonDefault   = "plain code"
)

var (
	loadCall  = regexp.MustCompile(`(?m)^\s*load\s*\(`)
	extAccess = regexp.MustCompile(`\.\s*` + sandbox.ExtAttr + `\b|getattr\s*\([^)]*['"]` + sandbox.ExtAttr + `['"]`)
)

// Classify routes code: any import is remote, then any access to the extension
// namespace is remote, otherwise local. A buffer that fails to parse falls back to
// textual detection.
func Classify(code string) Classification {
	src, rewrote := sandbox.RewriteImports(code)
	imports := rewrote || sandbox.HasImportStatement(code)
	f, err := syntax.Parse("<console>", src, 0)
	if err != nil {
		switch {
		case imports || loadCall.MatchString(code):
			return Classification{Route: Remote, Reason: ReasonImport}
		case extAccess.MatchString(code):
			return Classification{Route: Remote, Reason: ReasonExtension}
		}
		return Classification{Route: Local, Reason: ReasonDefault}
	}

	hasExt := false
	syntax.Walk(f, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.LoadStmt:
			imports = true
		case *syntax.DotExpr:
			hasExt = hasExt || n.Name.Name == sandbox.ExtAttr
		case *syntax.CallExpr:
			hasExt = hasExt || isExtGetattr(n)
		}
		return !imports
	})
	switch {
	case imports:
		return Classification{Route: Remote, Reason: ReasonImport, Parsed: true}
	case hasExt:
		return Classification{Route: Remote, Reason: ReasonExtension, Parsed: true}
	}
	return Classification{Route: Local, Reason: ReasonDefault, Parsed: true}
}

// isExtGetattr matches getattr(x, "ext"[, default]).
func isExtGetattr(call *syntax.CallExpr) bool {
	fn, ok := call.Fn.(*syntax.Ident)
	if !ok || fn.Name != "getattr" || len(call.Args) < 2 {
		return false
	}
	lit, ok := call.Args[1].(*syntax.Literal)
	return ok && lit.Token == syntax.STRING && lit.Value == sandbox.ExtAttr
}

// Runner executes a buffer in a worker process.
type Runner interface {
	Run(ctx context.Context, code string, table *model.Table) (sandbox.Result, error)
}

// Router dispatches classified code. Extensions are only registered in the worker
// process, so the in-process sandbox never reaches one.
type Router struct {
	AlwaysCommit bool
	MaxSteps     uint64
	Remote       Runner
}

// Execute classifies code and runs it against table. A bridge failure is reported as
// a single stderr line with no commit.
func (r *Router) Execute(ctx context.Context, code string, table *model.Table) (sandbox.Result, Classification) {
	c := Classify(code)
	slog.Debug("route", "route", c.Route.String(), "reason", c.Reason, "parsed", c.Parsed)

	if c.Route == Remote && r.Remote != nil {
		res, err := r.Remote.Run(ctx, code, table)
		if err != nil {
			slog.Warn("remote execution failed", "err", err)
			return sandbox.Result{Stderr: []string{err.Error()}, Err: err, Reason: sandbox.ReasonError}, c
		}
		return res, c
	}
	res := sandbox.Run(ctx, code, table, sandbox.Options{
		AlwaysCommit: r.AlwaysCommit,
		MaxSteps:     r.MaxSteps,
	})
	return res, c
}

var _ Runner = (*bridge.Client)(nil)
