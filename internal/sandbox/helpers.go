package sandbox

import (
	"fmt"
	"math"
	"strings"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// numpy-flavoured helpers. Each accepts a series, list or scalar.
var npModule = &starlarkstruct.Module{
	Name: "np",
	Members: starlark.StringDict{
		"sum":    starlark.NewBuiltin("np.sum", npReduce("sum")),
		"mean":   starlark.NewBuiltin("np.mean", npReduce("mean")),
		"min":    starlark.NewBuiltin("np.min", npReduce("min")),
		"max":    starlark.NewBuiltin("np.max", npReduce("max")),
		"abs":    starlark.NewBuiltin("np.abs", npUnary(math.Abs)),
		"sqrt":   starlark.NewBuiltin("np.sqrt", npUnary(math.Sqrt)),
		"floor":  starlark.NewBuiltin("np.floor", npUnary(math.Floor)),
		"ceil":   starlark.NewBuiltin("np.ceil", npUnary(math.Ceil)),
		"round":  starlark.NewBuiltin("np.round", npRound),
		"isnan":  starlark.NewBuiltin("np.isnan", npIsNaN),
		"arange": starlark.NewBuiltin("np.arange", npArange),
		"pi":     starlark.Float(math.Pi),
		"e":      starlark.Float(math.E),
		"nan":    starlark.Float(math.NaN()),
		"math":   starlarkmath.Module,
	},
}

// Predeclared returns the names every execution and extension module can see.
func Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"np":     npModule,
		"json":   starlarkjson.Module,
		"time":   starlarktime.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"eprint": starlark.NewBuiltin("eprint", eprint),
	}
}

func npValues(name string, v starlark.Value) ([]any, error) {
	vals, isSeq, err := valuesOf(v)
	if err != nil {
		return nil, err
	}
	if !isSeq {
		return nil, fmt.Errorf("%s: expected a series or list, got %s", name, v.Type())
	}
	return vals, nil
}

func npReduce(op string) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}
		vals, err := npValues(b.Name(), v)
		if err != nil {
			return nil, err
		}
		return reduce(op, vals)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// mapNumeric applies fn to a scalar or elementwise to a sequence. Nulls pass through.
func mapNumeric(name string, v starlark.Value, fn func(float64) any) (starlark.Value, error) {
	vals, isSeq, err := valuesOf(v)
	if err != nil {
		return nil, err
	}
	if !isSeq {
		cv, err := fromStarlark(v)
		if err != nil {
			return nil, err
		}
		if cv == nil {
			return starlark.None, nil
		}
		f, ok := toFloat(cv)
		if !ok {
			return nil, fmt.Errorf("%s: non-numeric value %s", name, v)
		}
		return toStarlark(fn(f)), nil
	}
	out := make([]any, len(vals))
	for i, cv := range vals {
		if cv == nil {
			continue
		}
		f, ok := toFloat(cv)
		if !ok {
			return nil, fmt.Errorf("%s: row %d: non-numeric value %s", name, i+1, toStarlark(cv))
		}
		out[i] = fn(f)
	}
	sname := ""
	if s, ok := v.(*Series); ok {
		sname = s.name
	}
	return newSeries(sname, out), nil
}

func npUnary(fn func(float64) float64) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}
		return mapNumeric(b.Name(), v, func(f float64) any { return fn(f) })
	}
}

func npRound(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	digits := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &v, "decimals?", &digits); err != nil {
		return nil, err
	}
	scale := math.Pow(10, float64(digits))
	return mapNumeric(b.Name(), v, func(f float64) any { return math.Round(f*scale) / scale })
}

func npIsNaN(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	return mapNumeric(b.Name(), v, func(f float64) any { return math.IsNaN(f) })
}

func npArange(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop, step starlark.Value = nil, nil, starlark.MakeInt(1)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &start, &stop, &step); err != nil {
		return nil, err
	}
	if stop == nil {
		start, stop = starlark.MakeInt(0), start
	}
	lo, ok1 := starlark.AsFloat(start)
	hi, ok2 := starlark.AsFloat(stop)
	inc, ok3 := starlark.AsFloat(step)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%s: arguments must be numbers", b.Name())
	}
	if inc == 0 {
		return nil, fmt.Errorf("%s: step must not be zero", b.Name())
	}
	_, i1 := start.(starlark.Int)
	_, i2 := stop.(starlark.Int)
	_, i3 := step.(starlark.Int)
	ints := i1 && i2 && i3

	const limit = 1_000_000
	var elems []starlark.Value
	for x := lo; (inc > 0 && x < hi) || (inc < 0 && x > hi); x += inc {
		if len(elems) >= limit {
			return nil, fmt.Errorf("%s: more than %d values", b.Name(), limit)
		}
		if ints {
			elems = append(elems, starlark.MakeInt64(int64(x)))
		} else {
			elems = append(elems, starlark.Float(x))
		}
	}
	return starlark.NewList(elems), nil
}

func eprint(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	sep := " "
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "sep?", &sep); err != nil {
		return nil, err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := starlark.AsString(a); ok {
			parts[i] = s
		} else {
			parts[i] = a.String()
		}
	}
	if st := stateOf(thread); st != nil && st.stderr != nil {
		fmt.Fprintln(st.stderr, strings.Join(parts, sep))
	}
	return starlark.None, nil
}
