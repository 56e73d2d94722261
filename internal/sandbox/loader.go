package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

var errLoadCycle = errors.New("cycle in load graph")

type loadEntry struct {
	globals starlark.StringDict
	err     error
}

// moduleLoader resolves load() names to files under dir. Each module runs once per
// execution; its globals are returned along with a struct bound to its base name.
type moduleLoader struct {
	dir         string
	predeclared starlark.StringDict
	cache       map[string]*loadEntry
}

func newModuleLoader(dir string, predeclared starlark.StringDict) *moduleLoader {
	return &moduleLoader{dir: dir, predeclared: predeclared, cache: map[string]*loadEntry{}}
}

func (l *moduleLoader) resolve(module string) (string, error) {
	if l.dir == "" {
		return "", fmt.Errorf("load %q: no module directory configured", module)
	}
	rel := filepath.FromSlash(strings.TrimSuffix(module, ".star") + ".star")
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("load %q: absolute paths are not allowed", module)
	}
	rel = filepath.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("load %q: path escapes the module directory", module)
	}
	return filepath.Join(l.dir, rel), nil
}

func (l *moduleLoader) Load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	e, ok := l.cache[module]
	if ok {
		if e == nil {
			return nil, fmt.Errorf("load %q: %w", module, errLoadCycle)
		}
		return e.globals, e.err
	}
	l.cache[module] = nil

	path, err := l.resolve(module)
	if err == nil {
		var src []byte
		src, err = os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("no module named %q", strings.ReplaceAll(module, "/", "."))
		}
		if err == nil {
			child := &starlark.Thread{Name: "load:" + module, Print: thread.Print, Load: l.Load}
			child.SetLocal(stateKey, stateOf(thread))
			var globals starlark.StringDict
			globals, err = starlark.ExecFile(child, path, src, l.predeclared)
			if err == nil {
				base := strings.TrimSuffix(module[strings.LastIndex(module, "/")+1:], ".star")
				out := make(starlark.StringDict, len(globals)+1)
				for k, v := range globals {
					out[k] = v
				}
				if _, clash := out[base]; !clash {
					out[base] = &starlarkstruct.Module{Name: base, Members: globals}
				}
				e = &loadEntry{globals: out}
			}
		}
	}
	if e == nil {
		e = &loadEntry{err: err}
	}
	l.cache[module] = e
	return e.globals, e.err
}
