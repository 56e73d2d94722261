// Package extensions loads user extension modules and exposes them as an explicit
// name -> function table.
//
// An extension module is a Starlark file whose top-level functions have the shape
// fn(table, *args). Functions whose names start with "_" are private.
package extensions

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
)

// FileExt is the extension module suffix.
const FileExt = ".star"

// LoadError reports a module that failed to load. Loading continues with the rest.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("extension %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFoundError is returned when calling an unregistered extension.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("extension not found: %s", e.Name)
}

// Registry maps extension names to callables.
type Registry struct {
	funcs  map[string]starlark.Callable
	source map[string]string
}

func NewRegistry() *Registry {
	return &Registry{funcs: map[string]starlark.Callable{}, source: map[string]string{}}
}

// Register adds fn under name. The first registration of a name wins.
func (r *Registry) Register(name, source string, fn starlark.Callable) bool {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return false
	}
	if _, ok := r.funcs[name]; ok {
		return false
	}
	r.funcs[name] = fn
	r.source[name] = source
	return true
}

func (r *Registry) Lookup(name string) (starlark.Callable, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.funcs[name]
	return fn, ok
}

// Source returns the module path an extension was loaded from.
func (r *Registry) Source(name string) string {
	if r == nil {
		return ""
	}
	return r.source[name]
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.funcs)
}

// Call invokes the named extension with table prepended to args.
func (r *Registry) Call(thread *starlark.Thread, name string, table starlark.Value, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, NotFoundError{Name: name}
	}
	full := make(starlark.Tuple, 0, len(args)+1)
	full = append(full, table)
	full = append(full, args...)
	return starlark.Call(thread, fn, full, kwargs)
}

// Modules lists the extension modules in dir in name order. A missing directory has
// none.
func Modules(dir string) ([]string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &LoadError{Path: dir, Err: err}
	}
	var paths []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// LoadDir executes every module in dir once and registers its public functions.
// Modules are visited in name order. A module that fails is skipped; its error is
// returned alongside the registry so callers can log it.
func LoadDir(dir string, predeclared starlark.StringDict) (*Registry, []error) {
	reg := NewRegistry()
	paths, err := Modules(dir)
	if err != nil {
		return reg, []error{err}
	}

	var errs []error
	for _, path := range paths {
		n, err := loadModule(reg, path, predeclared)
		if err != nil {
			lerr := &LoadError{Path: path, Err: err}
			slog.Warn("extension skipped", "path", path, "err", err)
			errs = append(errs, lerr)
			continue
		}
		slog.Debug("extension loaded", "path", path, "functions", n)
	}
	return reg, errs
}

func loadModule(reg *Registry, path string, predeclared starlark.StringDict) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	thread := &starlark.Thread{
		Name: "extension:" + filepath.Base(path),
		Print: func(_ *starlark.Thread, msg string) {
			slog.Debug("extension print", "path", path, "msg", msg)
		},
	}
	globals, err := starlark.ExecFile(thread, path, src, predeclared)
	if err != nil {
		return 0, err
	}

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		fn, ok := globals[name].(*starlark.Function)
		if !ok {
			continue
		}
		if reg.Register(name, path, fn) {
			n++
		}
	}
	return n, nil
}
