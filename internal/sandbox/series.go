package sandbox

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"tabedit/internal/coerce"
	"tabedit/internal/model"
)

// Series is an immutable copy of one column's values. Arithmetic on a series is
// elementwise and null-propagating.
type Series struct {
	name   string
	typ    model.ColumnType
	values []any
}

var (
	_ starlark.Indexable = (*Series)(nil)
	_ starlark.Iterable  = (*Series)(nil)
	_ starlark.HasBinary = (*Series)(nil)
	_ starlark.HasAttrs  = (*Series)(nil)
)

func newSeries(name string, values []any) *Series {
	return &Series{name: name, typ: model.InferType(values), values: values}
}

func seriesFromColumn(c *model.Column) *Series {
	vals := make([]any, len(c.Values))
	copy(vals, c.Values)
	return &Series{name: c.Name, typ: c.Type, values: vals}
}

func (s *Series) String() string {
	parts := make([]string, 0, len(s.values))
	for i, v := range s.values {
		if i == 20 {
			parts = append(parts, fmt.Sprintf("... (%d more)", len(s.values)-i))
			break
		}
		if v == nil {
			parts = append(parts, "None")
			continue
		}
		parts = append(parts, toStarlark(v).String())
	}
	return fmt.Sprintf("series(%q, %s, [%s])", s.name, s.typ, strings.Join(parts, ", "))
}

func (s *Series) Type() string          { return "series" }
func (s *Series) Freeze()               {}
func (s *Series) Truth() starlark.Bool  { return len(s.values) > 0 }
func (s *Series) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: series") }
func (s *Series) Len() int              { return len(s.values) }

func (s *Series) Index(i int) starlark.Value { return toStarlark(s.values[i]) }

func (s *Series) Iterate() starlark.Iterator { return &seriesIterator{s: s} }

type seriesIterator struct {
	s *Series
	i int
}

func (it *seriesIterator) Next(p *starlark.Value) bool {
	if it.i >= len(it.s.values) {
		return false
	}
	*p = toStarlark(it.s.values[it.i])
	it.i++
	return true
}

func (it *seriesIterator) Done() {}

// Binary implements elementwise arithmetic with another series or a scalar.
func (s *Series) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	switch op {
	case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.SLASHSLASH, syntax.PERCENT:
	default:
		return nil, nil
	}

	other, isSeries := y.(*Series)
	if isSeries && len(other.values) != len(s.values) {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", len(s.values), len(other.values))
	}

	out := make([]any, len(s.values))
	for i, v := range s.values {
		var rhs starlark.Value = y
		if isSeries {
			rhs = toStarlark(other.values[i])
		}
		if v == nil || rhs == starlark.None {
			continue
		}
		lhs := toStarlark(v)
		if side == starlark.Right {
			lhs, rhs = rhs, lhs
		}
		r, err := starlark.Binary(op, lhs, rhs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i+1, err)
		}
		cv, err := fromStarlark(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i+1, err)
		}
		out[i] = cv
	}
	return newSeries(s.name, out), nil
}

var seriesMethods = map[string]*starlark.Builtin{
	"sum":     starlark.NewBuiltin("sum", seriesReduce),
	"mean":    starlark.NewBuiltin("mean", seriesReduce),
	"min":     starlark.NewBuiltin("min", seriesReduce),
	"max":     starlark.NewBuiltin("max", seriesReduce),
	"count":   starlark.NewBuiltin("count", seriesReduce),
	"to_list": starlark.NewBuiltin("to_list", seriesToList),
	"map":     starlark.NewBuiltin("map", seriesMap),
	"isnull":  starlark.NewBuiltin("isnull", seriesIsNull),
	"fillna":  starlark.NewBuiltin("fillna", seriesFillNA),
}

func (s *Series) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(s.name), nil
	case "dtype":
		return starlark.String(string(s.typ)), nil
	}
	if b, ok := seriesMethods[name]; ok {
		return b.BindReceiver(s), nil
	}
	return nil, nil
}

func (s *Series) AttrNames() []string {
	names := []string{"name", "dtype"}
	for k := range seriesMethods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func seriesReduce(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	return reduce(b.Name(), s.values)
}

// reduce computes an aggregate over non-null values.
func reduce(op string, values []any) (starlark.Value, error) {
	var nums []float64
	allInt := true
	var isum int64
	count := 0
	var best any
	for _, v := range values {
		if v == nil {
			continue
		}
		count++
		switch x := v.(type) {
		case int64:
			nums = append(nums, float64(x))
			isum += x
		case float64:
			nums = append(nums, x)
			allInt = false
		default:
			if op == "min" || op == "max" {
				if best == nil || lessCell(v, best) == (op == "min") {
					best = v
				}
				continue
			}
			if op != "count" {
				return nil, fmt.Errorf("%s: non-numeric value %s", op, toStarlark(v))
			}
		}
	}
	switch op {
	case "count":
		return starlark.MakeInt(count), nil
	case "sum":
		if allInt {
			return starlark.MakeInt64(isum), nil
		}
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return starlark.Float(total), nil
	case "mean":
		if len(nums) == 0 {
			return starlark.None, nil
		}
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return starlark.Float(total / float64(len(nums))), nil
	case "min", "max":
		if best != nil {
			return toStarlark(best), nil
		}
		if len(nums) == 0 {
			return starlark.None, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if (op == "min" && n < m) || (op == "max" && n > m) {
				m = n
			}
		}
		if allInt {
			return starlark.MakeInt64(int64(m)), nil
		}
		return starlark.Float(m), nil
	}
	return nil, fmt.Errorf("unknown aggregate %s", op)
}

func seriesToList(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	elems := make([]starlark.Value, len(s.values))
	for i, v := range s.values {
		elems[i] = toStarlark(v)
	}
	return starlark.NewList(elems), nil
}

func seriesMap(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	out := make([]any, len(s.values))
	for i, v := range s.values {
		r, err := starlark.Call(thread, fn, starlark.Tuple{toStarlark(v)}, nil)
		if err != nil {
			return nil, err
		}
		cv, err := fromStarlark(r)
		if err != nil {
			return nil, fmt.Errorf("map: row %d: %v", i+1, err)
		}
		out[i] = cv
	}
	return newSeries(s.name, out), nil
}

func seriesIsNull(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	out := make([]any, len(s.values))
	for i, v := range s.values {
		out[i] = v == nil
	}
	return &Series{name: s.name, typ: model.TypeBool, values: out}, nil
}

func seriesFillNA(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fill starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fill); err != nil {
		return nil, err
	}
	s := b.Receiver().(*Series)
	fv, err := fromStarlark(fill)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(s.values))
	for i, v := range s.values {
		if v == nil {
			v = fv
		}
		out[i] = v
	}
	return newSeries(s.name, out), nil
}

// lessCell orders two non-null cell values, falling back to their text form.
func lessCell(a, b any) bool {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x < y
		case float64:
			return float64(x) < y
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return x < float64(y)
		case float64:
			return x < y || (math.IsNaN(y) && !math.IsNaN(x))
		}
	case bool:
		if y, ok := b.(bool); ok {
			return !x && y
		}
	case string:
		if y, ok := b.(string); ok {
			return x < y
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Before(y)
		}
	}
	return coerce.Format(a) < coerce.Format(b)
}
