package sandbox

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
	starlarktime "go.starlark.net/lib/time"

	"tabedit/internal/coerce"
	"tabedit/internal/model"
)

func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case int64:
		return starlark.MakeInt64(x)
	case float64:
		return starlark.Float(x)
	case bool:
		return starlark.Bool(x)
	case time.Time:
		return starlarktime.Time(x)
	case string:
		return starlark.String(x)
	default:
		return starlark.String(fmt.Sprint(x))
	}
}

func fromStarlark(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		n, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x)
		}
		return n, nil
	case starlark.Float:
		return float64(x), nil
	case starlark.String:
		return string(x), nil
	case starlarktime.Time:
		return time.Time(x), nil
	default:
		return nil, fmt.Errorf("cannot store a %s in a cell", v.Type())
	}
}

// cast converts a cell value into a column of type typ.
func cast(v any, typ model.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case model.TypeInt:
		if x, ok := v.(int64); ok {
			return x, nil
		}
	case model.TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case model.TypeBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case model.TypeTimestamp:
		if x, ok := v.(time.Time); ok {
			return x, nil
		}
	case model.TypeText:
		if x, ok := v.(string); ok {
			return x, nil
		}
	}
	if s, ok := v.(string); ok {
		return coerce.Coerce(s, typ)
	}
	return coerce.Convert(v, typ)
}

// valuesOf turns a series, list, tuple or other iterable into cell values.
func valuesOf(v starlark.Value) ([]any, bool, error) {
	switch x := v.(type) {
	case *Series:
		out := make([]any, len(x.values))
		copy(out, x.values)
		return out, true, nil
	case starlark.String:
		return nil, false, nil
	case starlark.Iterable:
		it := x.Iterate()
		defer it.Done()
		var out []any
		var elem starlark.Value
		for it.Next(&elem) {
			cv, err := fromStarlark(elem)
			if err != nil {
				return nil, true, err
			}
			out = append(out, cv)
		}
		return out, true, nil
	}
	return nil, false, nil
}
