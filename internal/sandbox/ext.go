package sandbox

import (
	"fmt"
	"io"

	"go.starlark.net/starlark"

	"tabedit/internal/extensions"
)

// ExtAttr is the table attribute that exposes the extension namespace.
const ExtAttr = "ext"

const stateKey = "tabedit.exec"

// execState is the per-run bookkeeping stored on the thread.
type execState struct {
	registry  *extensions.Registry
	extCalled bool
	stderr    io.Writer
}

func stateOf(thread *starlark.Thread) *execState {
	if thread == nil {
		return nil
	}
	st, _ := thread.Local(stateKey).(*execState)
	return st
}

// extNamespace resolves df.ext.NAME to a callable bound to the table.
type extNamespace struct {
	table *Table
}

var _ starlark.HasAttrs = (*extNamespace)(nil)

func (e *extNamespace) String() string        { return "<ext>" }
func (e *extNamespace) Type() string          { return "ext" }
func (e *extNamespace) Freeze()               {}
func (e *extNamespace) Truth() starlark.Bool  { return true }
func (e *extNamespace) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: ext") }

func (e *extNamespace) Attr(name string) (starlark.Value, error) {
	table := e.table
	return starlark.NewBuiltin("ext."+name, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		st := stateOf(thread)
		if st == nil || st.registry == nil {
			return nil, extensions.NotFoundError{Name: name}
		}
		st.extCalled = true
		return st.registry.Call(thread, name, table, args, kwargs)
	}), nil
}

// AttrNames is empty: the registry is only reachable through the running thread.
func (e *extNamespace) AttrNames() []string { return nil }
